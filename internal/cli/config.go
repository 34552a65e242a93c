package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds settings read from the YAML config file. Environment variables
// override file values; flags override both.
type Config struct {
	Storage struct {
		Driver     string `yaml:"driver"`      // memory|sqlite
		SQLitePath string `yaml:"sqlite_path"` // path to sqlite file
	} `yaml:"storage"`
	Remote struct {
		Driver string `yaml:"driver"` // postgres|memory|"" (disabled)
		DSN    string `yaml:"dsn"`
	} `yaml:"remote"`
	Photos struct {
		Driver string `yaml:"driver"` // fs|s3|memory
		FSRoot string `yaml:"fs_root"`
	} `yaml:"photos"`
	Identity struct {
		UserID string `yaml:"user_id"`
		Email  string `yaml:"email"`
		Name   string `yaml:"name"`
	} `yaml:"identity"`
	Metrics struct {
		Driver string `yaml:"driver"` // expvar|prometheus|"" (disabled)
	} `yaml:"metrics"`
}

// DefaultConfigPath is where LoadConfig looks when no --config flag is given.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cradle.yaml"
	}
	return filepath.Join(home, ".cradle.yaml")
}

// LoadConfig reads the YAML file at path, then applies environment overrides.
// A missing file is not an error; env and defaults still apply.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		path = DefaultConfigPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if uerr := yaml.Unmarshal(data, &cfg); uerr != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, uerr)
		}
	case os.IsNotExist(err):
		// fine, defaults plus env
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	overlay(&cfg.Storage.Driver, "CRADLECORE_STORAGE_DRIVER")
	overlay(&cfg.Storage.SQLitePath, "CRADLECORE_SQLITE_PATH")
	overlay(&cfg.Remote.Driver, "CRADLECORE_REMOTE_DRIVER")
	overlay(&cfg.Remote.DSN, "CRADLECORE_REMOTE_DSN")
	overlay(&cfg.Photos.Driver, "CRADLECORE_PHOTO_DRIVER")
	overlay(&cfg.Photos.FSRoot, "CRADLECORE_PHOTO_FS_ROOT")
	overlay(&cfg.Identity.UserID, "CRADLECORE_IDENTITY_UID")
	overlay(&cfg.Identity.Email, "CRADLECORE_IDENTITY_EMAIL")
	overlay(&cfg.Identity.Name, "CRADLECORE_IDENTITY_NAME")
	overlay(&cfg.Metrics.Driver, "CRADLECORE_METRICS_DRIVER")
}

func overlay(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
