package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cradlecore/pkg/domain"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cradle.db")
	store := openStore(t, path)
	ctx := context.Background()

	at := time.Date(2025, 4, 1, 7, 45, 0, 0, time.UTC)
	var babyID string
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		baby, err := tx.AddBaby(domain.Baby{Name: "June", DateOfBirth: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)})
		if err != nil {
			return err
		}
		babyID = baby.ID
		_, err = tx.AddFeeding(domain.FeedingRecord{Timestamp: at, Volume: 120})
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded := openStore(t, path)
	if got := reloaded.ActiveBabyID(); got != babyID {
		t.Fatalf("active id not restored: got %q want %q", got, babyID)
	}
	baby, ok := reloaded.GetBaby(babyID)
	if !ok {
		t.Fatal("baby not restored")
	}
	if len(baby.FeedingRecords) != 1 {
		t.Fatalf("expected 1 feeding record, got %d", len(baby.FeedingRecords))
	}
	rec := baby.FeedingRecords[0]
	if rec.Volume != 120 || !rec.Timestamp.Equal(at) {
		t.Fatalf("record changed across reload: %+v", rec)
	}
	if rec.Timestamp.Location() != time.UTC {
		t.Fatal("timestamp not rehydrated to UTC")
	}
}

func TestCorruptSnapshotFallsBackToEmptyState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cradle.db")
	store := openStore(t, path)
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.AddBaby(domain.Baby{Name: "June"})
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.DB().Exec(`UPDATE state SET payload = ? WHERE bucket = 'babies'`, []byte(`{not json`)); err != nil {
		t.Fatalf("corrupt payload: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded := openStore(t, path)
	if got := len(reloaded.ListBabies()); got != 0 {
		t.Fatalf("expected empty state after corrupt snapshot, got %d babies", got)
	}
	if got := reloaded.Settings(); !got.MetricUnits {
		t.Fatalf("expected default settings, got %+v", got)
	}
	// The store stays usable after the fallback.
	if _, err := reloaded.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.AddBaby(domain.Baby{Name: "Theo"})
		return err
	}); err != nil {
		t.Fatal(err)
	}
}

func TestSettingsSurviveReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cradle.db")
	store := openStore(t, path)
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		tx.UpdateSettings(func(s *domain.Settings) { s.DarkMode = true })
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded := openStore(t, path)
	if got := reloaded.Settings(); !got.DarkMode {
		t.Fatalf("dark mode not restored: %+v", got)
	}
}
