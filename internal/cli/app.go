package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"cradlecore/internal/blob"
	"cradlecore/internal/core"
	"cradlecore/internal/identity"
	"cradlecore/internal/remote"
	remotememory "cradlecore/internal/infra/remote/memory"
	remotepostgres "cradlecore/internal/infra/remote/postgres"
	"cradlecore/pkg/domain"
)

// App bundles the wired components a command needs.
type App struct {
	Config   Config
	Service  *core.Service
	Store    domain.PersistentStore
	Syncer   *remote.Syncer
	Identity identity.Provider
	closers  []func() error
}

// Close releases backend handles.
func (a *App) Close() error {
	var first error
	for _, fn := range a.closers {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// loadApp builds the application from config: storage backend, rules engine,
// optional remote syncer and photo store, and the service facade.
func loadApp(opts *RootOptions) (*App, error) {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	engine := core.DefaultRulesEngine()
	app := &App{Config: cfg}

	store, closeStore, err := core.OpenPersistentStore(core.StorageDriver(cfg.Storage.Driver), cfg.Storage.SQLitePath, engine)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open storage", err)
	}
	app.Store = store
	app.closers = append(app.closers, closeStore)

	svcOpts := []core.ServiceOption{core.WithLogger(core.NewSlogLogger(logger))}

	switch cfg.Metrics.Driver {
	case "":
		// metrics off
	case "expvar":
		svcOpts = append(svcOpts, core.WithMetrics(core.NewExpvarMetricsRecorder("cradle_service")))
	case "prometheus":
		rec, err := core.NewPrometheusMetricsRecorder(nil)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "register prometheus metrics", err)
		}
		svcOpts = append(svcOpts, core.WithMetrics(rec))
	default:
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("unknown metrics driver %q", cfg.Metrics.Driver), nil)
	}

	if cfg.Photos.Driver != "" {
		photos, err := openPhotoStore(cfg)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "open photo store", err)
		}
		svcOpts = append(svcOpts, core.WithPhotoStore(photos))
	}

	switch cfg.Remote.Driver {
	case "":
		// local-only
	case "postgres":
		coll, err := remotepostgres.NewCollection(cfg.Remote.DSN)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "open remote collection", err)
		}
		app.closers = append(app.closers, coll.Close)
		app.Syncer = remote.NewSyncer(app.Store, coll, remote.WithLogger(logger))
	case "memory":
		app.Syncer = remote.NewSyncer(app.Store, remotememory.NewCollection(), remote.WithLogger(logger))
	default:
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("unknown remote driver %q", cfg.Remote.Driver), nil)
	}

	if cfg.Identity.UserID != "" {
		app.Identity = identity.StaticProvider{User: identity.User{
			ID:    cfg.Identity.UserID,
			Email: cfg.Identity.Email,
			Name:  cfg.Identity.Name,
		}}
	} else {
		app.Identity = identity.EnvProvider{}
	}

	app.Service = core.NewService(app.Store, svcOpts...)
	return app, nil
}

func openPhotoStore(cfg Config) (blob.Store, error) {
	switch cfg.Photos.Driver {
	case "fs":
		return blob.NewFilesystem(cfg.Photos.FSRoot)
	case "s3":
		return blob.OpenFromEnv(context.Background())
	case "memory":
		return blob.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown photo driver %q", cfg.Photos.Driver)
	}
}
