// Package app wires adapters and services from configuration. Both the HTTP
// server and the CLI build on it.
package app

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"ai-bom-service/internal/adapters/primary/http/handlers"
	"ai-bom-service/internal/adapters/secondary/artifacts"
	"ai-bom-service/internal/adapters/secondary/badgerstore"
	"ai-bom-service/internal/adapters/secondary/events"
	"ai-bom-service/internal/adapters/secondary/kserve"
	"ai-bom-service/internal/adapters/secondary/postgres"
	"ai-bom-service/internal/config"
	"ai-bom-service/internal/core/domain"
	"ai-bom-service/internal/core/fingerprint"
	ports "ai-bom-service/internal/core/ports/output"
	"ai-bom-service/internal/core/services"
)

type App struct {
	Config *config.Config
	Store  *ports.Store
	Engine *fingerprint.Engine
	Events ports.EventPublisher

	Audit      *services.AuditService
	Registry   *services.RegistryService
	Ingest     *services.IngestService
	Scanner    *services.ScannerService
	Lineage    *services.LineageService
	Snapshots  *services.SnapshotService
	Verify     *services.VerificationService
	Signing    *services.SigningService
	Compliance *services.ComplianceService
	Export     *services.ExportService
	KServe     *services.KServeImportService

	closers []func() error
}

// New opens the configured store, replays the edge log and builds every
// service. Optional integrations (GCS, NATS, KServe, signing key) that fail
// to initialize are logged and left disabled.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	engine, err := fingerprint.New(domain.Algorithm(cfg.Fingerprint.Algorithm))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Engine = engine

	source, err := a.artifactSource(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Events = a.publisher()

	// ============================================================================
	// Core services
	// ============================================================================

	a.Audit = services.NewAuditService(store.Audit)
	a.Registry = services.NewRegistryService(store.Components, a.Audit, a.Events)
	a.Ingest = services.NewIngestService(a.Registry, source, engine)
	a.Scanner = services.NewScannerService(a.Ingest)
	a.Lineage = services.NewLineageService(store.Edges, store.Components, a.Audit, a.Events, services.TraversalConfig{
		MaxDepth: cfg.Traversal.MaxDepth,
		Timeout:  cfg.Traversal.Timeout,
	})
	if err := a.Lineage.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("load lineage: %w", err)
	}
	a.Snapshots = services.NewSnapshotService(store.Snapshots, store.Components, a.Lineage, engine, a.Audit, a.Events)
	a.Verify = services.NewVerificationService(a.Registry, source, engine, a.Audit, a.Events, services.VerifyConfig{
		Concurrency:   cfg.Verify.Concurrency,
		MaxRetries:    cfg.Verify.MaxRetries,
		RetryInterval: cfg.Verify.RetryInterval,
	})
	a.Signing = services.NewSigningService(store.Signatures, a.Snapshots, a.signingKey(), a.Audit)
	a.Compliance = services.NewComplianceService(a.Snapshots, a.Signing, a.Audit)
	a.Export = services.NewExportService(a.Snapshots, store.Signatures, a.Compliance)
	a.KServe = services.NewKServeImportService(a.kserveClient(), a.Ingest)

	return a, nil
}

// Handler builds the HTTP primary adapter over the app's services.
func (a *App) Handler() *handlers.Handler {
	return handlers.New(a.Registry, a.Ingest, a.Lineage, a.Snapshots, a.Verify, a.Signing, a.Compliance, a.Export, a.KServe, a.Audit)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg *config.Config) (*ports.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}
		lock, err := postgres.AcquireWriterLock(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return postgres.NewStore(pool, lock), nil
	default:
		s, err := badgerstore.Open(badgerstore.Config{
			Path:       cfg.Badger.Path,
			InMemory:   cfg.Badger.InMemory,
			SyncWrites: cfg.Badger.SyncWrites,
			GCInterval: cfg.Badger.GCInterval,
		})
		if err != nil {
			return nil, err
		}
		log.WithField("path", cfg.Badger.Path).Info("badger store opened")
		return s.Repositories(), nil
	}
}

func (a *App) artifactSource(ctx context.Context) (ports.ArtifactSource, error) {
	files, err := artifacts.NewFileSource(a.Config.Artifacts.Root)
	if err != nil {
		return nil, err
	}
	router := artifacts.NewRouter().
		Handle(files, "file").
		Handle(artifacts.NewHTTPSource(a.Config.Artifacts.HTTPTimeout), "http", "https")

	if a.Config.GCS.Enabled {
		gcs, err := artifacts.NewGCSSource(ctx, a.Config.GCS.CredentialsFile)
		if err != nil {
			log.WithError(err).Warn("GCS source init failed (continuing without gs:// support)")
		} else {
			router.Handle(gcs, "gs")
			a.closers = append(a.closers, gcs.Close)
			log.Info("GCS artifact source initialized")
		}
	}
	return router, nil
}

func (a *App) publisher() ports.EventPublisher {
	if a.Config.NATS.URL == "" {
		log.Info("event publishing disabled")
		return services.NoopPublisher{}
	}
	pub, err := events.Connect(a.Config.NATS.URL, a.Config.NATS.SubjectPrefix)
	if err != nil {
		log.WithError(err).Warn("NATS connect failed (continuing without events)")
		return services.NoopPublisher{}
	}
	a.closers = append(a.closers, pub.Close)
	log.WithField("url", a.Config.NATS.URL).Info("NATS publisher connected")
	return pub
}

func (a *App) signingKey() ed25519.PrivateKey {
	if a.Config.Signing.KeyPath == "" {
		return nil
	}
	key, err := services.LoadSigningKey(a.Config.Signing.KeyPath)
	if err != nil {
		log.WithError(err).Warn("signing key unavailable (BOM signing disabled)")
		return nil
	}
	log.WithField("key_id", services.KeyID(key.Public().(ed25519.PublicKey))).Info("signing key loaded")
	return key
}

func (a *App) kserveClient() ports.KServeClient {
	if !a.Config.Kubernetes.Enabled {
		log.Info("KServe integration disabled")
		return nil
	}
	client, err := kserve.NewKServeClient(&a.Config.Kubernetes)
	if err != nil {
		log.Warnf("KServe client init failed (continuing without K8s integration): %v", err)
		return nil
	}
	log.Info("KServe client initialized")
	return client
}

// InitLogger applies the logger configuration to the global logrus logger.
func InitLogger(cfg config.LoggerConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
