package identity

import (
	"context"
	"errors"
	"testing"
)

func TestEnvProvider(t *testing.T) {
	t.Setenv("CRADLECORE_IDENTITY_UID", "")
	t.Setenv("CRADLECORE_IDENTITY_EMAIL", "")
	if _, err := (EnvProvider{}).SignIn(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured with empty env, got %v", err)
	}

	t.Setenv("CRADLECORE_IDENTITY_UID", "uid-1")
	if _, err := (EnvProvider{}).SignIn(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("uid without email should not sign in, got %v", err)
	}

	t.Setenv("CRADLECORE_IDENTITY_EMAIL", "parent@example.com")
	t.Setenv("CRADLECORE_IDENTITY_NAME", "Parent")
	user, err := (EnvProvider{}).SignIn(context.Background())
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if user.ID != "uid-1" || user.Email != "parent@example.com" || user.Name != "Parent" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestStaticProvider(t *testing.T) {
	if _, err := (StaticProvider{}).SignIn(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("empty static provider should not sign in, got %v", err)
	}

	want := User{ID: "uid-2", Email: "other@example.com"}
	got, err := (StaticProvider{User: want}).SignIn(context.Background())
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}
