package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cradle.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CRADLECORE_STORAGE_DRIVER", "CRADLECORE_SQLITE_PATH",
		"CRADLECORE_REMOTE_DRIVER", "CRADLECORE_REMOTE_DSN",
		"CRADLECORE_PHOTO_DRIVER", "CRADLECORE_PHOTO_FS_ROOT",
		"CRADLECORE_IDENTITY_UID", "CRADLECORE_IDENTITY_EMAIL", "CRADLECORE_IDENTITY_NAME",
		"CRADLECORE_METRICS_DRIVER",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
storage:
  driver: sqlite
  sqlite_path: /tmp/cradle.db
remote:
  driver: postgres
  dsn: postgres://localhost/cradle
photos:
  driver: fs
  fs_root: /tmp/photos
identity:
  user_id: uid-1
  email: parent@example.com
metrics:
  driver: expvar
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != "/tmp/cradle.db" {
		t.Fatalf("storage section %+v", cfg.Storage)
	}
	if cfg.Remote.Driver != "postgres" || cfg.Remote.DSN != "postgres://localhost/cradle" {
		t.Fatalf("remote section %+v", cfg.Remote)
	}
	if cfg.Photos.FSRoot != "/tmp/photos" {
		t.Fatalf("photos section %+v", cfg.Photos)
	}
	if cfg.Identity.UserID != "uid-1" || cfg.Identity.Email != "parent@example.com" {
		t.Fatalf("identity section %+v", cfg.Identity)
	}
	if cfg.Metrics.Driver != "expvar" {
		t.Fatalf("metrics section %+v", cfg.Metrics)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg != (Config{}) {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "storage:\n  driver: sqlite\n")
	t.Setenv("CRADLECORE_STORAGE_DRIVER", "memory")
	t.Setenv("CRADLECORE_IDENTITY_UID", "env-uid")
	t.Setenv("CRADLECORE_METRICS_DRIVER", "prometheus")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("env override lost: %q", cfg.Storage.Driver)
	}
	if cfg.Identity.UserID != "env-uid" {
		t.Fatalf("env identity lost: %q", cfg.Identity.UserID)
	}
	if cfg.Metrics.Driver != "prometheus" {
		t.Fatalf("env metrics lost: %q", cfg.Metrics.Driver)
	}
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "storage: [broken")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}
