package core_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"cradlecore/internal/blob"
	blobmemory "cradlecore/internal/infra/blob/memory"
	persistmemory "cradlecore/internal/infra/persistence/memory"

	"cradlecore/internal/core"
	"cradlecore/pkg/domain"
)

// fakePusher records remote traffic so tests can assert push ordering without
// a live collection.
type fakePusher struct {
	pushed  []domain.Baby
	deleted []string
	pushErr error
}

func (f *fakePusher) PushBaby(_ context.Context, baby domain.Baby) error {
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushed = append(f.pushed, baby)
	return nil
}

func (f *fakePusher) DeleteBaby(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func newService(opts ...core.ServiceOption) (*core.Service, *persistmemory.Store) {
	store := persistmemory.NewStore(core.DefaultRulesEngine())
	return core.NewService(store, opts...), store
}

func mustCreate(t *testing.T, svc *core.Service, name string) domain.Baby {
	t.Helper()
	baby, _, err := svc.CreateBaby(context.Background(), domain.Baby{Name: name})
	if err != nil {
		t.Fatalf("create baby %s: %v", name, err)
	}
	return baby
}

func TestCreateBabyClaimsSessionOwnerAndPushes(t *testing.T) {
	remote := &fakePusher{}
	svc, store := newService()
	svc.SetSession("uid-1", "parent@example.com", remote)

	baby := mustCreate(t, svc, "June")
	if baby.OwnerID != "uid-1" {
		t.Fatalf("session owner not recorded: %q", baby.OwnerID)
	}
	if len(remote.pushed) != 1 || remote.pushed[0].ID != baby.ID {
		t.Fatalf("expected one push for the new baby, got %+v", remote.pushed)
	}
	// The pushed document reflects the committed local state.
	if remote.pushed[0].Name != "June" {
		t.Fatalf("pushed stale document %+v", remote.pushed[0])
	}
	if got := store.ActiveBabyID(); got != baby.ID {
		t.Fatalf("first baby not active: %q", got)
	}
}

func TestPushFailureLeavesLocalStateIntact(t *testing.T) {
	remote := &fakePusher{pushErr: errors.New("network down")}
	svc, store := newService()
	svc.SetSession("uid-1", "parent@example.com", remote)

	baby := mustCreate(t, svc, "June")
	if _, ok := store.GetBaby(baby.ID); !ok {
		t.Fatal("local commit rolled back on push failure")
	}
}

func TestRecordLifecyclePushesActiveBaby(t *testing.T) {
	remote := &fakePusher{}
	svc, _ := newService()
	svc.SetSession("uid-1", "parent@example.com", remote)
	baby := mustCreate(t, svc, "June")
	remote.pushed = nil

	rec, _, err := svc.AddFeeding(context.Background(), domain.FeedingRecord{
		Timestamp: time.Now(), Volume: 120, Type: domain.FeedingFormula,
	})
	if err != nil {
		t.Fatalf("add feeding: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("record id not assigned")
	}
	if len(remote.pushed) != 1 || remote.pushed[0].ID != baby.ID {
		t.Fatalf("record add did not push the owning baby: %+v", remote.pushed)
	}
	if len(remote.pushed[0].FeedingRecords) != 1 {
		t.Fatal("pushed document missing the new record")
	}

	found, _, err := svc.UpdateFeeding(context.Background(), rec.ID, func(r *domain.FeedingRecord) {
		r.Volume = 150
	})
	if err != nil || !found {
		t.Fatalf("update feeding: found=%v err=%v", found, err)
	}

	found, _, err = svc.DeleteRecord(context.Background(), domain.KindFeeding, rec.ID)
	if err != nil || !found {
		t.Fatalf("delete record: found=%v err=%v", found, err)
	}
	found, _, err = svc.DeleteRecord(context.Background(), domain.KindFeeding, rec.ID)
	if err != nil || found {
		t.Fatalf("second delete should be a no-op: found=%v err=%v", found, err)
	}
}

func TestUpdateSettingsStaysLocal(t *testing.T) {
	remote := &fakePusher{}
	svc, store := newService()
	svc.SetSession("uid-1", "parent@example.com", remote)
	mustCreate(t, svc, "June")
	remote.pushed = nil

	settings, _, err := svc.UpdateSettings(context.Background(), func(s *domain.Settings) {
		s.DarkMode = true
	})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if !settings.DarkMode {
		t.Fatal("settings mutation lost")
	}
	if len(remote.pushed) != 0 {
		t.Fatalf("settings change was pushed: %+v", remote.pushed)
	}
	if !store.Settings().DarkMode {
		t.Fatal("settings not persisted")
	}
}

func TestShareBabyOwnerOnly(t *testing.T) {
	remote := &fakePusher{}
	svc, store := newService()
	svc.SetSession("uid-1", "parent@example.com", remote)
	baby := mustCreate(t, svc, "June")

	// Owner grants access.
	updated, _, err := svc.ShareBaby(context.Background(), baby.ID, "grandma@example.com")
	if err != nil {
		t.Fatalf("owner share: %v", err)
	}
	if !updated.SharedWithContains("grandma@example.com") {
		t.Fatalf("grantee missing from %+v", updated.SharedWith)
	}
	// Granting the same email twice does not duplicate it.
	updated, _, err = svc.ShareBaby(context.Background(), baby.ID, "grandma@example.com")
	if err != nil {
		t.Fatalf("repeat share: %v", err)
	}
	if len(updated.SharedWith) != 1 {
		t.Fatalf("duplicate grant: %+v", updated.SharedWith)
	}

	// A different session is blocked and the sharing list is untouched.
	svc.SetSession("uid-2", "other@example.com", remote)
	_, _, err = svc.ShareBaby(context.Background(), baby.ID, "stranger@example.com")
	if !errors.Is(err, core.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected blocking violation, got %v", err)
	}
	current, _ := store.GetBaby(baby.ID)
	if len(current.SharedWith) != 1 || current.SharedWith[0] != "grandma@example.com" {
		t.Fatalf("blocked share mutated state: %+v", current.SharedWith)
	}

	// The owner revokes access.
	svc.SetSession("uid-1", "parent@example.com", remote)
	updated, _, err = svc.UnshareBaby(context.Background(), baby.ID, "grandma@example.com")
	if err != nil {
		t.Fatalf("unshare: %v", err)
	}
	if len(updated.SharedWith) != 0 {
		t.Fatalf("revocation ineffective: %+v", updated.SharedWith)
	}
}

func TestShareUnknownBabyErrors(t *testing.T) {
	svc, _ := newService()
	if _, _, err := svc.ShareBaby(context.Background(), "missing", "x@example.com"); err == nil {
		t.Fatal("expected error sharing an unknown baby")
	}
}

func TestObservabilityWiring(t *testing.T) {
	audit := core.NewMemoryAuditLog(100)
	metrics := core.NewExpvarMetricsRecorder("")
	var traceBuf bytes.Buffer
	tracer := core.NewJSONTracer(&traceBuf)

	svc, _ := newService(core.WithAudit(audit), core.WithMetrics(metrics), core.WithTracer(tracer))
	svc.SetSession("uid-1", "parent@example.com", &fakePusher{})

	baby := mustCreate(t, svc, "June")
	svc.SetSession("uid-2", "other@example.com", &fakePusher{})
	if _, _, err := svc.ShareBaby(context.Background(), baby.ID, "x@example.com"); err == nil {
		t.Fatal("expected blocked share")
	}

	entries := audit.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}
	if entries[0].Operation != "create_baby" || entries[0].Status != core.AuditStatusSuccess {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Operation != "share_baby" || entries[1].Status != core.AuditStatusBlocked {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}
	if entries[1].Actor != "uid-2" {
		t.Fatalf("actor not recorded: %+v", entries[1])
	}

	snap := metrics.Snapshot()
	if snap.Results["create_baby"]["success"] != 1 {
		t.Fatalf("create counter missing: %+v", snap.Results)
	}
	if snap.Results["share_baby"]["error"] != 1 {
		t.Fatalf("blocked share not counted as error: %+v", snap.Results)
	}

	if len(tracer.Entries()) != 2 {
		t.Fatalf("expected 2 trace spans, got %d", len(tracer.Entries()))
	}
}

func TestAttachPhoto(t *testing.T) {
	photos := blobmemory.New()
	svc, store := newService(core.WithPhotoStore(photos))
	baby := mustCreate(t, svc, "June")

	info, err := svc.AttachPhoto(context.Background(), baby.ID, "image/jpeg",
		strings.NewReader("jpegdata"), int64(len("jpegdata")))
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	current, _ := store.GetBaby(baby.ID)
	if current.PhotoKey != info.Key {
		t.Fatalf("photo key not recorded: %q vs %q", current.PhotoKey, info.Key)
	}

	// A second attach replaces the stored object and key.
	info2, err := svc.AttachPhoto(context.Background(), baby.ID, "image/png",
		strings.NewReader("pngdata"), int64(len("pngdata")))
	if err != nil {
		t.Fatalf("replace attach: %v", err)
	}
	current, _ = store.GetBaby(baby.ID)
	if current.PhotoKey != info2.Key {
		t.Fatalf("replacement key not recorded: %q", current.PhotoKey)
	}

	// The memory backend cannot presign; the key is still resolvable.
	if _, err := svc.PhotoURL(context.Background(), baby.ID); !errors.Is(err, blob.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported from memory presign, got %v", err)
	}
}

func TestAttachPhotoRejections(t *testing.T) {
	photos := blobmemory.New()
	svc, _ := newService(core.WithPhotoStore(photos))
	baby := mustCreate(t, svc, "June")
	ctx := context.Background()

	if _, err := svc.AttachPhoto(ctx, baby.ID, "application/pdf", strings.NewReader("x"), 1); !errors.Is(err, blob.ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
	if _, err := svc.AttachPhoto(ctx, baby.ID, "image/jpeg", strings.NewReader("x"), blob.MaxPhotoBytes+1); !errors.Is(err, blob.ErrPhotoTooLarge) {
		t.Fatalf("expected ErrPhotoTooLarge on declared size, got %v", err)
	}

	// Unknown size with an oversized stream is caught after the upload and
	// the partial object is removed.
	big := strings.NewReader(strings.Repeat("a", blob.MaxPhotoBytes+10))
	if _, err := svc.AttachPhoto(ctx, baby.ID, "image/jpeg", big, -1); !errors.Is(err, blob.ErrPhotoTooLarge) {
		t.Fatalf("expected ErrPhotoTooLarge on streamed size, got %v", err)
	}
	key := blob.PhotoKey(baby.ID, "image/jpeg")
	if _, err := photos.Head(ctx, key); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("oversized upload left an object behind: %v", err)
	}

	// Attaching to a missing baby removes the stored blob again.
	if _, err := svc.AttachPhoto(ctx, "missing", "image/png", strings.NewReader("x"), 1); err == nil {
		t.Fatal("expected error for unknown baby")
	}
	if _, err := photos.Head(ctx, blob.PhotoKey("missing", "image/png")); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("orphaned photo left behind: %v", err)
	}
}

func TestAttachPhotoWithoutStore(t *testing.T) {
	svc, _ := newService()
	if _, err := svc.AttachPhoto(context.Background(), "id", "image/png", strings.NewReader("x"), 1); !errors.Is(err, core.ErrNoPhotoStore) {
		t.Fatalf("expected ErrNoPhotoStore, got %v", err)
	}
}

func TestExportImportMergesByID(t *testing.T) {
	svc, _ := newService()
	baby := mustCreate(t, svc, "June")
	if _, _, err := svc.AddFeeding(context.Background(), domain.FeedingRecord{Volume: 120, Type: domain.FeedingBreast}); err != nil {
		t.Fatal(err)
	}

	var archive bytes.Buffer
	if err := svc.Export(&archive); err != nil {
		t.Fatalf("export: %v", err)
	}

	// Rename locally, then import the older archive: the archived copy wins
	// for that id, without creating a duplicate.
	if _, _, _, err := svc.UpdateBabyProfile(context.Background(), baby.ID, func(b *domain.Baby) error {
		b.Name = "Renamed"
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Import(context.Background(), bytes.NewReader(archive.Bytes())); err != nil {
		t.Fatalf("import: %v", err)
	}

	babies := svc.Store().ListBabies()
	if len(babies) != 1 {
		t.Fatalf("import duplicated the baby: %d", len(babies))
	}
	if babies[0].Name != "June" {
		t.Fatalf("archived copy did not replace local: %q", babies[0].Name)
	}
	if len(babies[0].FeedingRecords) != 1 {
		t.Fatal("records lost across export/import")
	}
	if got := svc.Store().ActiveBabyID(); got != baby.ID {
		t.Fatalf("active selection lost: %q", got)
	}
}

func TestImportRejectsInvalidArchive(t *testing.T) {
	svc, _ := newService()
	mustCreate(t, svc, "June")

	if _, err := svc.Import(context.Background(), strings.NewReader("{broken")); err == nil {
		t.Fatal("expected error for malformed archive")
	}
	if got := len(svc.Store().ListBabies()); got != 1 {
		t.Fatalf("failed import mutated state: %d babies", got)
	}
}

func TestDeleteBabyAndDeleteAllData(t *testing.T) {
	remote := &fakePusher{}
	svc, store := newService()
	svc.SetSession("uid-1", "parent@example.com", remote)
	first := mustCreate(t, svc, "June")
	second := mustCreate(t, svc, "Theo")

	deleted, _, err := svc.DeleteBaby(context.Background(), first.ID)
	if err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}
	if len(remote.deleted) != 1 || remote.deleted[0] != first.ID {
		t.Fatalf("remote delete not forwarded: %+v", remote.deleted)
	}
	if got := store.ActiveBabyID(); got != second.ID {
		t.Fatalf("remaining baby not promoted: %q", got)
	}

	// Wipe resets everything including settings.
	if _, _, err := svc.UpdateSettings(context.Background(), func(s *domain.Settings) { s.DarkMode = true }); err != nil {
		t.Fatal(err)
	}
	remote.deleted = nil
	if _, err := svc.DeleteAllData(context.Background()); err != nil {
		t.Fatalf("wipe: %v", err)
	}
	if len(store.ListBabies()) != 0 || store.ActiveBabyID() != "" {
		t.Fatal("wipe left babies behind")
	}
	if store.Settings() != domain.DefaultSettings() {
		t.Fatalf("settings not reset: %+v", store.Settings())
	}
	if len(remote.deleted) != 1 || remote.deleted[0] != second.ID {
		t.Fatalf("wipe did not clean the remote: %+v", remote.deleted)
	}
}

func TestTemperatureWarningIsNonBlocking(t *testing.T) {
	svc, _ := newService()
	mustCreate(t, svc, "June")

	_, res, err := svc.AddTemperature(context.Background(), domain.TemperatureRecord{Reading: 55})
	if err != nil {
		t.Fatalf("implausible reading must still commit: %v", err)
	}
	if len(res.Warnings()) == 0 {
		t.Fatal("expected a warning for the implausible reading")
	}
}

func ExampleService_Export() {
	store := persistmemory.NewStore(nil)
	svc := core.NewService(store)
	_, _, _ = svc.CreateBaby(context.Background(), domain.Baby{Name: "June"})

	var out bytes.Buffer
	_ = svc.Export(&out)
	fmt.Println(strings.Contains(out.String(), "June"))
	// Output: true
}
