// Package app initializes and holds the long-lived services, acting as
// the dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/minsukl/toondex-ingest/internal/alert"
	alertpubsub "github.com/minsukl/toondex-ingest/internal/alert/pubsub"
	"github.com/minsukl/toondex-ingest/internal/archive"
	archivegcs "github.com/minsukl/toondex-ingest/internal/archive/gcs"
	archivelocal "github.com/minsukl/toondex-ingest/internal/archive/local"
	"github.com/minsukl/toondex-ingest/internal/clock/system"
	"github.com/minsukl/toondex-ingest/internal/config"
	iduuid "github.com/minsukl/toondex-ingest/internal/id/uuid"
	"github.com/minsukl/toondex-ingest/internal/ingest"
	"github.com/minsukl/toondex-ingest/internal/metrics"
	"github.com/minsukl/toondex-ingest/internal/source/httpx"
	"github.com/minsukl/toondex-ingest/internal/source/kakao"
	"github.com/minsukl/toondex-ingest/internal/source/munpia"
	"github.com/minsukl/toondex-ingest/internal/source/naver"
	"github.com/minsukl/toondex-ingest/internal/store/postgres"
)

// App holds the shared, long-lived services.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	pool         *pgxpool.Pool
	reports      *postgres.ReportStore
	orchestrator *ingest.Orchestrator
	closers      []func()
}

// New assembles the application from configuration, failing fast when a
// critical service cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.Init()

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:              cfg.DB.DSN,
		MaxConns:         int32(cfg.DB.MaxConns),
		MinConns:         int32(cfg.DB.MinConns),
		StatementTimeout: time.Duration(cfg.DB.StatementTimeoutMs) * time.Millisecond,
		LockTimeout:      time.Duration(cfg.DB.LockTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("init postgres pool: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, pool: pool}
	a.closers = append(a.closers, pool.Close)

	contents, err := postgres.NewContentStore(poolNoClose{pool})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init content store: %w", err)
	}
	a.reports, err = postgres.NewReportStore(poolNoClose{pool})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init report store: %w", err)
	}

	archiver, err := a.buildArchiver(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init archiver: %w", err)
	}
	alerts, err := a.buildAlerts(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init alerts: %w", err)
	}

	sources, runConfigs, err := a.buildSources()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init sources: %w", err)
	}

	clk := system.New()
	runner := ingest.NewRunner(contents, contents, a.reports, archiver, clk, iduuid.New(), logger)
	a.orchestrator = ingest.NewOrchestrator(runner, sources, runConfigs, alerts, clk, logger)

	logger.Info("application services initialized",
		zap.Int("sources", len(sources)),
		zap.String("archive", cfg.Archive.Provider),
		zap.String("alerts", cfg.Alerts.Provider),
	)
	return a, nil
}

// poolNoClose hands the shared pool to a store without letting the
// store's Close tear it down; the App owns the pool lifecycle.
type poolNoClose struct {
	*pgxpool.Pool
}

func (poolNoClose) Close() {}

func (a *App) buildArchiver(ctx context.Context) (ingest.Archiver, error) {
	switch a.cfg.Archive.Provider {
	case "", "noop":
		return archive.Noop{}, nil
	case "local":
		return archivelocal.New(a.cfg.Archive.LocalDir, a.cfg.Archive.Prefix)
	case "gcs":
		g, err := archivegcs.New(ctx, a.cfg.Archive.GCSBucket, a.cfg.Archive.Prefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := g.Close(); err != nil {
				a.logger.Warn("close gcs archiver", zap.Error(err))
			}
		})
		return g, nil
	default:
		return nil, fmt.Errorf("unknown archive provider: %s", a.cfg.Archive.Provider)
	}
}

func (a *App) buildAlerts(ctx context.Context) (ingest.AlertSink, error) {
	switch a.cfg.Alerts.Provider {
	case "", "noop":
		return alert.Noop{}, nil
	case "pubsub":
		s, err := alertpubsub.New(ctx, a.cfg.Alerts.ProjectID, a.cfg.Alerts.TopicID)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := s.Close(); err != nil {
				a.logger.Warn("close pubsub alerts", zap.Error(err))
			}
		})
		return s, nil
	default:
		return nil, fmt.Errorf("unknown alerts provider: %s", a.cfg.Alerts.Provider)
	}
}

func (a *App) buildSources() ([]ingest.Source, map[string]ingest.SourceRunConfig, error) {
	var sources []ingest.Source
	runConfigs := make(map[string]ingest.SourceRunConfig)

	for name, sc := range a.cfg.Sources {
		if !sc.Enabled {
			continue
		}
		client := httpx.New(httpx.Config{
			UserAgent:    sc.UserAgent,
			APIKey:       sc.APIKey,
			APIKeyHeader: sc.APIKeyHeader,
		})
		var src ingest.Source
		switch name {
		case "naver":
			src = naver.New(naver.Config{BaseURL: sc.BaseURL, PageSize: a.cfg.PageSizeFor(name)}, client)
		case "kakao":
			src = kakao.New(kakao.Config{BaseURL: sc.BaseURL, PageSize: a.cfg.PageSizeFor(name)}, client)
		case "munpia":
			src = munpia.New(munpia.Config{BaseURL: sc.BaseURL, UserAgent: sc.UserAgent})
		default:
			return nil, nil, fmt.Errorf("unknown source: %s", name)
		}
		sources = append(sources, src)

		retry := a.cfg.RetryFor(name)
		runConfigs[name] = ingest.SourceRunConfig{
			Timeout: a.cfg.RunTimeout(),
			Paginate: ingest.PaginateConfig{
				MaxPages:           a.cfg.MaxPagesFor(name),
				IdenticalPageLimit: a.cfg.Pagination.IdenticalPageLimit,
				NoNewIDLimit:       a.cfg.Pagination.NoNewIDLimit,
				Retry: ingest.RetryPolicy{
					MaxAttempts: retry.MaxAttempts,
					BaseDelay:   time.Duration(retry.BaseDelayMs) * time.Millisecond,
					MaxDelay:    time.Duration(retry.MaxDelayMs) * time.Millisecond,
					Jitter:      ingest.CryptoJitter,
				},
			},
		}
	}
	if len(sources) == 0 {
		return nil, nil, fmt.Errorf("no sources enabled")
	}
	return sources, runConfigs, nil
}

// RunBatch executes one ingestion batch across all enabled sources.
func (a *App) RunBatch(ctx context.Context) ingest.BatchSummary {
	return a.orchestrator.RunBatch(ctx)
}

// Reports exposes the report store for the ops API.
func (a *App) Reports() *postgres.ReportStore { return a.reports }

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Close tears down services in reverse initialization order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	if err := a.logger.Sync(); err != nil {
		// Best effort; stderr sync failures are expected on some platforms.
		_ = err
	}
}
