// Nodeflow Worker — выполняет workflow, поставленные в очередь.
//
// Worker:
//   - Получает prompt.queued из RabbitMQ (или находит PENDING runs polling'ом)
//   - Выполняет workflow и сохраняет результат в историю
//   - По расписанию удаляет старые завершённые runs
//
// Workers масштабируются горизонтально.
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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Nodeflow/internal/config"
	"github.com/shaiso/Nodeflow/internal/executor"
	"github.com/shaiso/Nodeflow/internal/mq"
	"github.com/shaiso/Nodeflow/internal/nodes"
	"github.com/shaiso/Nodeflow/internal/repo"
	"github.com/shaiso/Nodeflow/internal/retention"
	"github.com/shaiso/Nodeflow/internal/telemetry"
	"github.com/shaiso/Nodeflow/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting nodeflow-worker")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool: без истории worker'у нечего выполнять
	pool, err := repo.NewPool(ctx, cfg.DBURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repo.EnsureSchema(ctx, pool); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	runRepo := repo.NewRunRepo(pool)
	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	registry := nodes.DefaultRegistry(nodes.Options{
		Inference: nodes.InferenceConfig{
			BaseURL: cfg.InferenceURL,
			Timeout: cfg.InferenceTimeout,
		},
		OutputDir: cfg.OutputDir,
	})

	exec := executor.New(executor.Config{
		Nodes:       registry,
		Observer:    executor.Observers{executor.LogObserver{}, executor.NewMetricsObserver(metrics)},
		StrictLinks: cfg.StrictLinks,
	})

	// RabbitMQ
	var mqConn *mq.Connection
	mqURL := cfg.RabbitMQURL
	if mqURL == "" {
		mqURL = mq.DefaultURL
	}

	mqConn, err = mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
	}

	w := worker.New(worker.Config{
		Runs:   runRepo,
		Runner: exec,
		Conn:   mqConn,
		Logger: logger,
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// Очистка истории по расписанию
	pruner, err := retention.New(retention.Config{
		Store:    runRepo,
		CronExpr: cfg.RetentionCron,
		MaxAge:   cfg.HistoryMaxAge,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("invalid history retention config", "error", err)
		os.Exit(1)
	}
	go pruner.Run(ctx)

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              ":" + cfg.WorkerPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	w.Stop()
	logger.Info("nodeflow-worker stopped")
}
