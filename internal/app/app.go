// Package app assembles the verifier components from configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"x1-token-verifier/internal/config"
	"x1-token-verifier/internal/introspection"
	"x1-token-verifier/internal/liquidity"
	"x1-token-verifier/internal/observability"
	"x1-token-verifier/internal/report"
	"x1-token-verifier/internal/risk"
	"x1-token-verifier/internal/server"
	"x1-token-verifier/internal/solana"
	"x1-token-verifier/internal/storage"
	chstore "x1-token-verifier/internal/storage/clickhouse"
	"x1-token-verifier/internal/storage/memory"
	"x1-token-verifier/internal/storage/migrations"
	mongostore "x1-token-verifier/internal/storage/mongo"
	pgstore "x1-token-verifier/internal/storage/postgres"
	"x1-token-verifier/internal/tax"
	"x1-token-verifier/internal/watch"
)

// App holds the wired verifier.
type App struct {
	Config  *config.Config
	Logger  logrus.FieldLogger
	Metrics *observability.Metrics
	Gateway *solana.Gateway
	Service *risk.Service
	Trigger *report.Trigger

	Tokens  storage.TokenStore
	Reports storage.ReportStore
	History storage.AssessmentHistoryStore
	Locker  storage.Locker

	closers []func()
}

// Build connects storage, resolves secrets and wires every component.
// Call Close when done.
func Build(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*App, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	if cfg.GoogleSecretManager.Enabled {
		secrets, err := config.NewGSMAccessor(ctx, cfg.GoogleSecretManager.ProjectID)
		if err != nil {
			return nil, err
		}
		err = config.ResolveSecrets(ctx, cfg, secrets)
		secrets.Close()
		if err != nil {
			return nil, err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics("", reg),
	}

	if err := a.openStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}

	gateway, err := solana.NewGateway(cfg.RPC.Endpoints,
		solana.WithCallTimeout(cfg.CallTimeout()),
		solana.WithObserver(a.Metrics),
		solana.WithLogger(logger),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Gateway = gateway

	introCfg := introspection.DefaultConfig()
	introCfg.Logger = logger

	liqCfg := liquidity.DefaultConfig()
	liqCfg.SignatureLimit = cfg.Liquidity.SignatureLimit
	liqCfg.MaxTransactions = cfg.Liquidity.MaxTransactions
	liqCfg.Concurrency = cfg.Liquidity.Concurrency
	if len(cfg.Liquidity.DEXPrograms) > 0 {
		liqCfg.DEXPrograms = cfg.Liquidity.DEXPrograms
	}
	if len(cfg.Liquidity.LockerPrograms) > 0 {
		liqCfg.LockerPrograms = cfg.Liquidity.LockerPrograms
	}
	liqCfg.Logger = logger

	a.Service = risk.NewService(
		risk.Config{Network: cfg.Network, Logger: logger},
		introspection.New(gateway, introCfg),
		liquidity.NewDetector(gateway, liqCfg),
		tax.NewAnalyzer(gateway, logger),
		risk.WithTokenStore(a.Tokens),
		risk.WithHistoryStore(a.History),
		risk.WithObserver(a.Metrics),
	)

	a.Trigger = report.NewTrigger(report.Config{
		MaxReportsPerUser: cfg.Reports.MaxPerUser,
		AbuseWindow:       cfg.AbuseWindow(),
		Threshold:         cfg.Reports.Threshold,
		Logger:            logger,
	}, a.Reports, a.Locker, a.Service)

	logger.WithFields(logrus.Fields{
		"network":   cfg.Network,
		"backend":   cfg.Storage.Backend,
		"endpoints": len(cfg.RPC.Endpoints),
	}).Info("[app] verifier wired")

	return a, nil
}

// openStorage selects stores for the configured backend. Assessment history
// goes to ClickHouse whenever a DSN is configured.
func (a *App) openStorage(ctx context.Context) error {
	cfg := a.Config

	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pool.Close)
		ran, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			return err
		}
		if len(ran) > 0 {
			a.Logger.WithField("versions", ran).Info("[app] postgres migrations applied")
		}
		a.Tokens = pgstore.NewTokenStore(pool)
		a.Reports = pgstore.NewReportStore(pool)
		// Single-writer deployments only; use the mongo backend to share locks.
		a.Locker = memory.NewLocker()

	case config.BackendMongo:
		db, err := mongostore.Connect(ctx, cfg.Storage.MongoDB.URI, cfg.Storage.MongoDB.Database, cfg.MongoTimeout())
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = db.Disconnect(context.Background()) })
		if err := db.SetupIndexes(ctx); err != nil {
			return err
		}
		lockCfg := mongostore.DefaultLockerConfig()
		lockCfg.Logger = a.Logger
		// A lock must outlive the request holding it or another replica takes it over.
		if hold := 2 * time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second; hold > lockCfg.TTL {
			lockCfg.TTL = hold
		}
		locker := mongostore.NewLocker(db, lockCfg)
		purgeCtx, stopPurge := context.WithCancel(context.Background())
		go locker.RunPurger(purgeCtx)
		a.closers = append(a.closers, stopPurge)

		a.Tokens = mongostore.NewTokenStore(db)
		a.Reports = mongostore.NewReportStore(db)
		a.Locker = locker

	default:
		a.Tokens = memory.NewTokenStore()
		a.Reports = memory.NewReportStore()
		a.Locker = memory.NewLocker()
	}

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = conn.Close() })
		a.History = chstore.NewAssessmentHistoryStore(conn)
	} else {
		a.History = memory.NewAssessmentHistoryStore()
	}
	return nil
}

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler {
	return server.New(&server.Handler{
		Verifier:       a.Service,
		Reporter:       a.Trigger,
		Tokens:         a.Tokens,
		History:        a.History,
		ReportObserver: a.Metrics,
		RequestTimeout: time.Duration(a.Config.Server.RequestTimeoutSecs) * time.Second,
		Logger:         a.Logger,
	}, a.Metrics)
}

// NewWatcher dials the WebSocket endpoint and returns a watcher over the
// tracked mints. The returned close func releases the connection.
func (a *App) NewWatcher(ctx context.Context) (*watch.Watcher, func(), error) {
	wsCfg := solana.DefaultWSConfig()
	wsCfg.Headers = a.Config.RPC.WSHeaders
	wsCfg.Logger = a.Logger

	ws, err := solana.NewWSClient(ctx, a.Config.RPC.WSURL, &wsCfg)
	if err != nil {
		return nil, nil, err
	}

	watchCfg := watch.DefaultConfig()
	watchCfg.Debounce = time.Duration(a.Config.Watch.DebounceSecs) * time.Second
	watchCfg.Refresh = time.Duration(a.Config.Watch.RefreshSecs) * time.Second
	if len(a.Config.Liquidity.DEXPrograms) > 0 {
		watchCfg.DEXPrograms = a.Config.Liquidity.DEXPrograms
	}
	watchCfg.Logger = a.Logger

	w := watch.New(watchCfg, ws, a.Tokens, a.Service, watch.WithObserver(a.Metrics))
	return w, func() { _ = ws.Close() }, nil
}

// Close releases storage connections in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Migrate applies schema migrations for the configured backends without
// wiring the rest of the app.
func Migrate(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) error {
	if cfg.Storage.Backend == config.BackendPostgres {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		ran, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			return err
		}
		logger.WithField("versions", ran).Infof("[migrate] applied %d postgres migrations", len(ran))
	}

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return err
		}
		_ = conn.Close()
		logger.Info("[migrate] clickhouse migrations applied")
	}

	if cfg.Storage.Backend == config.BackendMongo {
		db, err := mongostore.Connect(ctx, cfg.Storage.MongoDB.URI, cfg.Storage.MongoDB.Database, cfg.MongoTimeout())
		if err != nil {
			return err
		}
		defer func() { _ = db.Disconnect(context.Background()) }()
		if err := db.SetupIndexes(ctx); err != nil {
			return fmt.Errorf("mongo indexes: %w", err)
		}
		logger.Info("[migrate] mongo indexes created")
	}
	return nil
}
