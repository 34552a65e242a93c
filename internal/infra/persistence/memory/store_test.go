package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cradlecore/pkg/domain"
)

func addBaby(t *testing.T, store *Store, name string) domain.Baby {
	t.Helper()
	var created domain.Baby
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		created, err = tx.AddBaby(domain.Baby{Name: name})
		return err
	}); err != nil {
		t.Fatalf("add baby %s: %v", name, err)
	}
	return created
}

func TestFirstBabyBecomesActive(t *testing.T) {
	store := NewStore(nil)
	first := addBaby(t, store, "June")
	addBaby(t, store, "Theo")

	if got := store.ActiveBabyID(); got != first.ID {
		t.Fatalf("expected first baby %s active, got %s", first.ID, got)
	}
}

func TestRecordCollectionInvariant(t *testing.T) {
	store := NewStore(nil)
	addBaby(t, store, "June")
	ctx := context.Background()

	ids := make(map[string]bool)
	for i := 0; i < 5; i++ {
		var created domain.FeedingRecord
		if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			created, err = tx.AddFeeding(domain.FeedingRecord{Volume: float64(50 + i)})
			return err
		}); err != nil {
			t.Fatalf("add feeding %d: %v", i, err)
		}
		if created.ID == "" {
			t.Fatal("expected assigned record id")
		}
		if ids[created.ID] {
			t.Fatalf("duplicate record id %s", created.ID)
		}
		ids[created.ID] = true
	}

	var victim string
	for id := range ids {
		victim = id
		break
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if !tx.DeleteRecord(domain.KindFeeding, victim) {
			return fmt.Errorf("expected delete of %s to report true", victim)
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	active, _ := store.ActiveBaby()
	if got := len(active.FeedingRecords); got != 4 {
		t.Fatalf("expected 4 records after delete, got %d", got)
	}
	for _, r := range active.FeedingRecords {
		if r.ID == victim {
			t.Fatalf("deleted record %s still present", victim)
		}
		if !ids[r.ID] {
			t.Fatalf("unexpected record id %s", r.ID)
		}
	}
}

func TestDeleteAbsentRecordIsNoOp(t *testing.T) {
	store := NewStore(nil)
	addBaby(t, store, "June")
	ctx := context.Background()

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.AddDiaper(domain.DiaperRecord{Color: "yellow"}); err != nil {
			return err
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if tx.DeleteRecord(domain.KindDiaper, "no-such-id") {
			return fmt.Errorf("expected no-op delete to report false")
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	active, _ := store.ActiveBaby()
	if got := len(active.DiaperRecords); got != 1 {
		t.Fatalf("no-op delete changed collection size: %d", got)
	}
}

func TestUpdateAbsentRecordIsNoOp(t *testing.T) {
	store := NewStore(nil)
	addBaby(t, store, "June")

	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if tx.UpdateFeeding("missing", func(r *domain.FeedingRecord) { r.Volume = 1 }) {
			return fmt.Errorf("expected update of missing record to report false")
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteActiveBabyPromotesRemaining(t *testing.T) {
	store := NewStore(nil)
	first := addBaby(t, store, "June")
	second := addBaby(t, store, "Theo")
	ctx := context.Background()

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if !tx.DeleteBaby(first.ID) {
			return fmt.Errorf("expected delete to report true")
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if got := store.ActiveBabyID(); got != second.ID {
		t.Fatalf("expected promotion to %s, got %q", second.ID, got)
	}

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		tx.DeleteBaby(second.ID)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if got := store.ActiveBabyID(); got != "" {
		t.Fatalf("expected cleared active reference, got %q", got)
	}
}

func TestDeleteAbsentBabyIsNoOp(t *testing.T) {
	store := NewStore(nil)
	addBaby(t, store, "June")

	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if tx.DeleteBaby("missing") {
			return fmt.Errorf("expected delete of missing baby to report false")
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if got := len(store.ListBabies()); got != 1 {
		t.Fatalf("no-op delete changed baby count: %d", got)
	}
}

func TestAddRecordWithoutActiveBaby(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.AddFeeding(domain.FeedingRecord{Volume: 100})
		return err
	})
	if err == nil {
		t.Fatal("expected error adding record with no active baby")
	}
	if got := len(store.ListBabies()); got != 0 {
		t.Fatalf("failed transaction mutated state: %d babies", got)
	}
}

func TestGrowthUpdatesCurrentMeasurements(t *testing.T) {
	store := NewStore(nil)
	addBaby(t, store, "June")
	ctx := context.Background()

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.AddGrowth(domain.GrowthMeasurement{Weight: 4.2, Height: 54}); err != nil {
			return err
		}
		// zero weight leaves the current value untouched
		_, err := tx.AddGrowth(domain.GrowthMeasurement{Height: 56})
		return err
	}); err != nil {
		t.Fatal(err)
	}

	active, _ := store.ActiveBaby()
	if active.CurrentWeight != 4.2 {
		t.Fatalf("expected weight 4.2, got %v", active.CurrentWeight)
	}
	if active.CurrentHeight != 56 {
		t.Fatalf("expected height 56, got %v", active.CurrentHeight)
	}
	if got := len(active.GrowthMeasurements); got != 2 {
		t.Fatalf("expected 2 measurements, got %d", got)
	}
}

func TestFeedingScenarioPersistsThroughExport(t *testing.T) {
	store := NewStore(nil)
	addBaby(t, store, "June")
	at := time.Date(2025, 4, 1, 7, 45, 0, 0, time.UTC)

	var created domain.FeedingRecord
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		created, err = tx.AddFeeding(domain.FeedingRecord{Timestamp: at, Volume: 120, Type: domain.FeedingFormula})
		return err
	}); err != nil {
		t.Fatal(err)
	}

	active, _ := store.ActiveBaby()
	last := active.FeedingRecords[len(active.FeedingRecords)-1]
	if last.Volume != 120 || !last.Timestamp.Equal(at) {
		t.Fatalf("unexpected last record %+v", last)
	}

	reloaded := NewStore(nil)
	reloaded.ImportState(store.ExportState())
	again, _ := reloaded.ActiveBaby()
	got := again.FeedingRecords[len(again.FeedingRecords)-1]
	if got.ID != created.ID || got.Volume != 120 || !got.Timestamp.Equal(at) {
		t.Fatalf("record changed across export/import: %+v", got)
	}
}

func TestReplaceBabiesReresolvesActive(t *testing.T) {
	store := NewStore(nil)
	first := addBaby(t, store, "June")
	ctx := context.Background()

	replacementA := domain.Baby{Name: "Remote A"}
	replacementA.Normalize()
	replacementB := domain.Baby{Name: "Remote B"}
	replacementB.Normalize()

	// Active id missing from replacement set: falls back to first.
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		tx.ReplaceBabies([]domain.Baby{replacementA, replacementB})
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if got := store.ActiveBabyID(); got != replacementA.ID {
		t.Fatalf("expected fallback to first replacement, got %q", got)
	}
	if _, ok := store.GetBaby(first.ID); ok {
		t.Fatal("replaced baby still present")
	}

	// Active id present in replacement set: selection survives.
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		tx.SetActiveBaby(replacementB.ID)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		tx.ReplaceBabies([]domain.Baby{replacementB, replacementA})
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if got := store.ActiveBabyID(); got != replacementB.ID {
		t.Fatalf("expected selection to survive replacement, got %q", got)
	}
}

func TestBlockingRuleRollsBackTransaction(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockEverything{})
	store := NewStore(engine)

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.AddBaby(domain.Baby{Name: "June"})
		return err
	})
	if err == nil {
		t.Fatal("expected blocking rule to fail the transaction")
	}
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected RuleViolationError, got %T: %v", err, err)
	}
	if got := len(store.ListBabies()); got != 0 {
		t.Fatalf("blocked transaction committed: %d babies", got)
	}
}

type blockEverything struct{}

func (blockEverything) Name() string { return "block-everything" }

func (blockEverything) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{
		Rule:     "block-everything",
		Severity: domain.SeverityBlock,
		Message:  "nope",
	}}}, nil
}
