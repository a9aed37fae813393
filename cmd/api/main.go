package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"paperforge/internal/api"
	"paperforge/internal/audit"
	"paperforge/internal/auth"
	"paperforge/internal/config"
	"paperforge/internal/logging"
	"paperforge/internal/metrics"
	"paperforge/internal/pipeline"
	"paperforge/internal/pricing"
	"paperforge/internal/providers"
	"paperforge/internal/storage"
	"paperforge/internal/tokens"
	"paperforge/internal/workflows"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := storage.NewDB(dbCtx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.EnsureSchema(dbCtx); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	gateway, err := providers.NewGateway(cfg, logger)
	if err != nil {
		return err
	}
	if !gateway.Available() {
		logger.Warn("no llm provider configured; generation requests will fail", zap.String("llm_providers", cfg.LLMProviders))
	}

	counter := tokens.New(cfg.TokenizerEncoding)
	users := storage.NewUserRepo(db)
	messages := storage.NewMessageRepo(db)
	ledger := storage.NewLedger(db)
	orch := pipeline.New(pipeline.Deps{
		Gateway:  gateway,
		Counter:  counter,
		Pricing:  pricing.NewModel(cfg.Pricing()),
		Balances: users,
		Messages: messages,
		Ledger:   ledger,
		Calls:    storage.NewLLMAuditRepo(db),
		Metrics:  m,
		Logger:   logger,
		Settings: pipeline.SettingsFrom(cfg),
	})

	deps := api.Deps{
		Config:   cfg,
		Users:    users,
		Sessions: storage.NewSessionRepo(db),
		Messages: messages,
		Pipeline: orch,
		Tokens:   auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Health:   db,
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:   logger,
	}

	if cfg.ObjectStoreEnabled() {
		store, err := storage.NewObjectStore(ctx, cfg)
		if err != nil {
			return err
		}
		deps.Archiver = store
	}

	if cfg.WorkflowMode() {
		tc, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
		if err != nil {
			return err
		}
		defer tc.Close()
		deps.Processor = workflows.NewProcessor(tc, cfg.TemporalTaskQueue)
	}

	scheduler := cron.New()
	ledgerAudit := audit.NewLedgerAudit(ledger, cfg.LedgerAuditWindow, m, logger)
	if _, err := ledgerAudit.Schedule(scheduler, cfg.LedgerAuditSchedule, time.Minute); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           api.NewServer(deps).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("paperforge api listening",
			zap.String("addr", cfg.APIAddr),
			zap.String("llm_provider", gateway.Name()),
			zap.String("process_mode", cfg.ProcessMode),
			zap.String("tokenizer", counter.Profile()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
