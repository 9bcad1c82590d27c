package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"modgate/internal/analysis"
	"modgate/internal/config"
	"modgate/internal/database"
	"modgate/internal/database/migrations"
	"modgate/internal/database/sqlc"
	"modgate/internal/delivery"
	"modgate/internal/encryption"
	"modgate/internal/gate"
	"modgate/internal/metrics"
	"modgate/internal/staging"
	"modgate/internal/store"
)

// App is the application layer between the CLI and gate.Service.
// It constructs all dependencies from config and manages their lifecycle on Close.
type App struct {
	cfg     *config.Config
	run     *Run
	db      gate.Database
	store   gate.ObjectStore
	metrics *metrics.Prometheus
	service *gate.Service
	logger  *slog.Logger
	cleanup func()
}

// New creates a fully wired App from the given config.
// command identifies the CLI command being run (e.g. "stage", "sweep").
// The caller must call Close when done.
func New(ctx context.Context, cfg *config.Config, command string) (*App, error) {
	run := NewRun(command, time.Now())
	logger, cleanup, err := newLogger(cfg.Logging, cfg.LogDir, run.ID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	adapter := &slogAdapter{l: logger}

	a, err := wire(ctx, cfg, adapter)
	if err != nil {
		cleanup()
		return nil, err
	}
	a.run = run
	a.logger = logger
	a.cleanup = cleanup
	logger.Debug("run started", "command", command)
	return a, nil
}

// wire builds every collaborator of the service.
func wire(ctx context.Context, cfg *config.Config, logger gate.Logger) (*App, error) {
	sealer, err := encryption.NewSealerFromConfig(cfg.Staging)
	if err != nil {
		return nil, fmt.Errorf("creating staging sealer: %w", err)
	}
	sa, err := staging.NewStagingAreaFromConfig(cfg.Staging, sealer)
	if err != nil {
		return nil, fmt.Errorf("creating staging area: %w", err)
	}

	st, err := store.NewObjectStoreFromConfig(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("creating object store: %w", err)
	}

	as, err := analysis.NewAnalysisServiceFromConfig(cfg.Analysis, logger)
	if err != nil {
		return nil, fmt.Errorf("creating analysis service: %w", err)
	}

	dn, err := delivery.NewDeliveryNetworkFromConfig(cfg.Delivery, logger)
	if err != nil {
		return nil, fmt.Errorf("creating delivery network: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	m := metrics.NewPrometheus()
	svc, err := gate.NewService(gate.Dependencies{
		Database: db,
		Staging:  sa,
		Store:    st,
		Analysis: as,
		Delivery: dn,
		Logger:   logger,
		Metrics:  m,
		Clock:    gate.RealClock{},
		IDs:      gate.UUIDGenerator{},
	}, PolicyFromConfig(cfg))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating service: %w", err)
	}

	return &App{
		cfg:     cfg,
		db:      db,
		store:   st,
		metrics: m,
		service: svc,
	}, nil
}

// Migrate applies pending schema migrations to the configured database and
// returns the schema state before and after.
func Migrate(cfg *config.Config) (before, after migrations.Status, err error) {
	if cfg.Database.Type != "sqlite" {
		return before, after, fmt.Errorf("database type %q is migrated on open", cfg.Database.Type)
	}
	db, err := database.OpenFromConfig(cfg.Database)
	if err != nil {
		return before, after, err
	}
	defer db.Close()

	if before, err = db.SchemaStatus(); err != nil {
		return before, after, err
	}
	if err := db.MigrateUp(); err != nil {
		return before, after, err
	}
	after, err = db.SchemaStatus()
	return before, after, err
}

// Fail marks the current run as failed. Close logs the outcome.
func (a *App) Fail() {
	a.run.Fail()
}

// Stage stages the file at path with the declared metadata. A zero
// meta.Size is taken from the file.
func (a *App) Stage(ctx context.Context, meta gate.UploadMetadata, path string) (*sqlc.ContentItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	if meta.Size == 0 {
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat upload: %w", err)
		}
		meta.Size = info.Size()
	}
	if meta.Version == 0 {
		meta.Version = gate.MetadataVersion
	}
	return a.service.Stage(ctx, meta, f)
}

// Process drives each id to a resting state.
func (a *App) Process(ctx context.Context, ids []string) error {
	return a.service.ProcessAll(ctx, ids)
}

// Sweep runs one recovery sweep.
func (a *App) Sweep(ctx context.Context) (gate.SweepReport, error) {
	return a.service.Sweep(ctx)
}

// Watch runs the sweeper every interval until ctx ends, serving metrics on
// metricsAddr when it is set. Zero arguments fall back to the config.
func (a *App) Watch(ctx context.Context, interval time.Duration, metricsAddr string) error {
	if interval <= 0 {
		interval = a.cfg.Sweeper.Interval.Duration
	}
	if metricsAddr == "" {
		metricsAddr = a.cfg.Metrics.ListenAddr
	}
	if metricsAddr == "" {
		return a.service.RunSweeper(ctx, interval)
	}

	srv := &http.Server{
		Addr:              metricsAddr,
		Handler:           a.MetricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		a.logger.Info("serving metrics", "addr", metricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	sweepErr := a.service.RunSweeper(ctx, interval)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("metrics server shutdown failed", "error", err)
	}
	if err := <-errc; err != nil {
		return fmt.Errorf("metrics server: %w", err)
	}
	return sweepErr
}

// MetricsHandler serves the Prometheus registry of this App.
func (a *App) MetricsHandler() http.Handler {
	return a.metrics.Handler()
}

// GetStatus returns the consumer view of an item.
func (a *App) GetStatus(ctx context.Context, id string) (*gate.StatusView, error) {
	return a.service.GetStatus(ctx, id)
}

// ListDecisions returns the decision trail of an item.
func (a *App) ListDecisions(ctx context.Context, id string) ([]*sqlc.ModerationDecision, error) {
	return a.service.ListDecisions(ctx, id)
}

// Override applies a moderator decision.
func (a *App) Override(ctx context.Context, req gate.OverrideRequest) (*sqlc.ModerationDecision, error) {
	return a.service.Override(ctx, req)
}

// Delete tombstones an item.
func (a *App) Delete(ctx context.Context, id string) error {
	return a.service.Delete(ctx, id)
}

// VerifyInvariant checks the schema and then every active item against its
// decision trail.
func (a *App) VerifyInvariant(ctx context.Context) error {
	st, err := a.SchemaStatus()
	if err != nil {
		return err
	}
	if err := st.Err(); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return a.service.CheckInvariant(ctx)
}

// SchemaStatus reports the schema state of the metadata database.
func (a *App) SchemaStatus() (migrations.Status, error) {
	s, ok := a.db.(interface {
		SchemaStatus() (migrations.Status, error)
	})
	if !ok {
		return migrations.Status{}, fmt.Errorf("database does not report its schema")
	}
	return s.SchemaStatus()
}

// ValidateStore checks that the durable store is reachable and writable.
func (a *App) ValidateStore(ctx context.Context) error {
	return a.store.ValidateSetup(ctx)
}

// BackupDatabase writes a consistent copy of the metadata database to dest.
func (a *App) BackupDatabase(dest string) error {
	b, ok := a.db.(interface{ BackupTo(string) error })
	if !ok {
		return fmt.Errorf("database does not support backups")
	}
	return b.BackupTo(dest)
}

// Close closes the database and the log.
func (a *App) Close() error {
	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logger != nil {
		a.logger.Debug("run finished", "command", a.run.Command, "status", a.run.Status, "elapsed", time.Since(a.run.Started))
	}
	if a.cleanup != nil {
		a.cleanup()
	}
	return firstErr
}
