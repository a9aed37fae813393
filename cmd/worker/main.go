package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"paperforge/internal/activities"
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

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal("dial temporal", zap.Error(err))
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		logger.Fatal("ensure schema", zap.Error(err))
	}

	gateway, err := providers.NewGateway(cfg, logger)
	if err != nil {
		logger.Fatal("build llm gateway", zap.Error(err))
	}
	users := storage.NewUserRepo(db)
	orch := pipeline.New(pipeline.Deps{
		Gateway:  gateway,
		Counter:  tokens.New(cfg.TokenizerEncoding),
		Pricing:  pricing.NewModel(cfg.Pricing()),
		Balances: users,
		Messages: storage.NewMessageRepo(db),
		Ledger:   storage.NewLedger(db),
		Calls:    storage.NewLLMAuditRepo(db),
		Metrics:  metrics.New(prometheus.DefaultRegisterer),
		Logger:   logger,
		Settings: pipeline.SettingsFrom(cfg),
	})

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, activities.New(orch, logger))

	logger.Info("paperforge worker listening",
		zap.String("temporal", cfg.TemporalAddress),
		zap.String("queue", cfg.TemporalTaskQueue),
		zap.String("llm_provider", gateway.Name()))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("worker exited", zap.Error(err))
	}
}
