package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"catalog-discovery/breaker"
	"catalog-discovery/config"
	"catalog-discovery/db"
	"catalog-discovery/discovery"
	"catalog-discovery/logger"
	"catalog-discovery/mongostore"
)

// catalogWriter is the write side used by import.
type catalogWriter interface {
	UpsertProjects(ctx context.Context, ps []discovery.Project) error
	RecordDownloads(ctx context.Context, projectID string, at ...time.Time) error
	AddLike(ctx context.Context, userID, projectID string) error
}

// projectReader loads single projects for the detail endpoint.
type projectReader interface {
	GetProject(ctx context.Context, id string) (discovery.Project, error)
}

// backend bundles the collaborators one store driver provides.
type backend struct {
	store      discovery.Store
	events     discovery.EventLog
	identities discovery.IdentityResolver
	writer     catalogWriter
	projects   projectReader
	close      func() error
}

// app is everything a command needs after bootstrap.
type app struct {
	cfg     config.Config
	backend backend
	svc     *discovery.Service
}

func (a *app) Close() {
	if err := a.backend.close(); err != nil {
		cmdLog().Warnw("Failed to close store", zap.Error(err))
	}
}

func cmdLog() *zap.SugaredLogger {
	if logger.Log != nil {
		return logger.Log
	}
	return zap.NewNop().Sugar()
}

// bootstrap handles shared initialization logic for commands.
func bootstrap(ctx context.Context, path string) *app {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		cmdLog().Fatalw("Failed to load configuration", zap.Error(err))
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		cmdLog().Fatalw("Failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	return &app{cfg: cfg, backend: b, svc: newService(cfg, b)}
}

// openBackend connects the configured store driver.
func openBackend(ctx context.Context, cfg config.Config) (backend, error) {
	log := cmdLog()
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		if err := db.InitDatabase(cfg.DatabasePath, log); err != nil {
			return backend{}, err
		}
		log.Infow("Database initialized", zap.String("path", cfg.DatabasePath))
		gdb := db.DB
		s := db.NewStore(gdb)
		return backend{
			store:      s,
			events:     s,
			identities: s,
			writer:     s,
			projects:   s,
			close:      func() error { return db.Close(gdb) },
		}, nil

	case config.DriverMongo:
		m, err := mongostore.Connect(ctx, cfg.MongoURL, cfg.MongoDatabase, log)
		if err != nil {
			return backend{}, err
		}
		return backend{
			store:      m,
			events:     m,
			identities: m,
			writer:     m,
			projects:   m,
			close:      m.Close,
		}, nil
	}
	return backend{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// newService assembles the discovery facade, guarding reads with circuit
// breakers when enabled.
func newService(cfg config.Config, b backend) *discovery.Service {
	log := cmdLog()
	store, events := b.store, b.events
	if cfg.BreakerEnabled {
		store = breaker.WrapStore(store, breaker.New("store", breaker.DefaultSettings(), log))
		events = breaker.WrapEventLog(events, breaker.New("events", breaker.DefaultSettings(), log))
	}
	return discovery.NewService(discovery.Options{
		Store:           store,
		Events:          events,
		Identities:      b.identities,
		Cache:           discovery.NewResultCache("projects", cfg.CacheSize, cfg.CacheTTL),
		Logger:          log,
		QueryTimeout:    cfg.QueryTimeout,
		DefaultPageSize: cfg.DefaultPageSize,
	})
}
