package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"egitim/internal/amqp"
	"egitim/internal/cache"
	"egitim/internal/cli"
	"egitim/internal/dataset"
	"egitim/internal/filter"
	"egitim/internal/headcount"
	apphttp "egitim/internal/http"
	applog "egitim/internal/log"
	"egitim/internal/metrics"
	"egitim/internal/middleware/ratelimit"
	"egitim/internal/middleware/security"
	"egitim/internal/services"
	gsheet "egitim/internal/sheets/google"
	"egitim/internal/worker"
)

func main() {
	if err := run(); err != nil {
		applog.FromContext(context.Background()).Error("Fatal error", applog.FieldError, err)
		os.Exit(1)
	}
}

func run() error {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		// Logger is not configured yet.
		cli.SetupLogger("info", applog.FormatText).Error("Configuration validation failed", applog.FieldError, err)
		return err
	}
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting egitim",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		"headcount_backend", cfg.HeadcountBackend,
		"sheets_enabled", cfg.SheetsEnabled(),
		"amqp_enabled", cfg.AMQPEnabled())

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	m := metrics.NewManager(metrics.WithProcessCollectors())

	deps := services.Deps{
		Engine:  filter.NewEngine(cfg.DefaultCompany),
		Metrics: m,
		Logger:  logger,
		Loader:  dataset.NewLoader(),
		Holder:  &dataset.Holder{},
	}

	// Headcounts and load history
	var persister headcount.Persister
	repo, err := cli.InitSQLite(logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		return err
	}
	if repo != nil {
		defer repo.Close()
		persister = repo
		deps.History = repo
		deps.Pingers = append(deps.Pingers, repo)
	}
	store := headcount.NewStore(persister, logger.WithComponent(applog.ComponentHeadcount).Logger)
	if err := store.Load(ctx); err != nil {
		logger.Error("Failed to load headcounts", applog.FieldError, err)
		return err
	}
	deps.Headcounts = store

	// View memo
	var janitor *cache.Janitor
	if cfg.CacheEnabled {
		lru := cache.NewLRUCache[any](cfg.CacheSize, cfg.CacheTTL)
		deps.Cache = lru
		janitor = cache.NewJanitor(cfg.CacheTTL, logger.WithComponent(applog.ComponentCache).Logger)
		janitor.Register(lru)
	}

	// Google Sheets source
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			return err
		}
		deps.Sheets = client
		logger.Info("Google Sheets source configured", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	// Events
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			// Events are best-effort; the dashboards work without a broker.
			logger.Warn("AMQP unavailable, events disabled", applog.FieldError, err)
		} else {
			defer client.Close()
			deps.Notifier = client
		}
	}

	svc := services.NewTrainingService(deps)

	if cfg.SeedWorkbook != "" {
		if err := seed(ctx, svc, cfg.SeedWorkbook); err != nil {
			logger.Warn("Seed workbook not loaded", applog.FieldError, err, "path", cfg.SeedWorkbook)
		}
	}

	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
	clientIP := security.NewClientIPResolver()
	for _, cidr := range cfg.TrustedProxies {
		if err := clientIP.AddTrustedProxy(cidr); err != nil {
			return err
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Metrics:        m,
		Limiter:        limiter,
		ClientIP:       clientIP,
		Logger:         logger,
	})
	srv.ReadTimeout = 60 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return limiter.Run(gctx) })
	if janitor != nil {
		g.Go(func() error { return janitor.Run(gctx) })
	}
	if deps.Sheets != nil && cfg.GoogleSyncInterval > 0 {
		w := worker.NewSyncWorker(svc, cfg.GoogleSyncInterval, logger.WithComponent(applog.ComponentSheets).Logger)
		g.Go(func() error { return w.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", applog.FieldError, err)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

func seed(ctx context.Context, svc *services.TrainingService, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = svc.Seed(ctx, path, data)
	return err
}
