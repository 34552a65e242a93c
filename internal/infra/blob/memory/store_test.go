package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"cradlecore/internal/blob/core"
)

func TestPutGetDelete(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.Put(ctx, "k", strings.NewReader("one"), core.PutOptions{ContentType: "image/png"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	// Replace in place.
	if _, err := store.Put(ctx, "k", strings.NewReader("two"), core.PutOptions{ContentType: "image/jpeg"}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	info, rc, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "two" || info.ContentType != "image/jpeg" {
		t.Fatalf("replacement lost: %q %+v", body, info)
	}

	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get missing: %v", err)
	}
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("head missing: %v", err)
	}

	existed, err := store.Delete(ctx, "k")
	if err != nil || !existed {
		t.Fatalf("delete: %v %v", existed, err)
	}
	existed, _ = store.Delete(ctx, "k")
	if existed {
		t.Fatal("second delete reported existing object")
	}
}

func TestListAndPresign(t *testing.T) {
	store := New()
	ctx := context.Background()

	for _, key := range []string{"a/1", "a/2", "b/1"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatal(err)
		}
	}
	infos, err := store.List(ctx, "a/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(infos))
	}

	if _, err := store.PresignURL(ctx, "a/1", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported from presign, got %v", err)
	}
}
