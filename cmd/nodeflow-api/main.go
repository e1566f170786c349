// Nodeflow API — HTTP сервер для выполнения workflow.
//
// API:
//   - POST /prompt — синхронное выполнение workflow
//   - POST /api/v1/prompts — постановка workflow в очередь (нужны БД и RabbitMQ)
//   - GET /object_info — описание зарегистрированных нод
//   - GET /api/v1/runs — история запусков (нужна БД)
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Nodeflow/internal/api"
	"github.com/shaiso/Nodeflow/internal/config"
	"github.com/shaiso/Nodeflow/internal/executor"
	"github.com/shaiso/Nodeflow/internal/mq"
	"github.com/shaiso/Nodeflow/internal/nodes"
	"github.com/shaiso/Nodeflow/internal/repo"
	"github.com/shaiso/Nodeflow/internal/telemetry"
)

var startTime = time.Now()

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting nodeflow-api")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	// Реестр нод заполняется один раз при старте
	registry := nodes.DefaultRegistry(nodes.Options{
		Inference: nodes.InferenceConfig{
			BaseURL: cfg.InferenceURL,
			Timeout: cfg.InferenceTimeout,
		},
		OutputDir: cfg.OutputDir,
	})
	logger.Info("node registry ready", "kinds", registry.Kinds())

	exec := executor.New(executor.Config{
		Nodes:       registry,
		Observer:    executor.Observers{executor.LogObserver{}, executor.NewMetricsObserver(metrics)},
		StrictLinks: cfg.StrictLinks,
	})

	handlerCfg := api.Config{
		Runner:          exec,
		Catalog:         registry,
		Metrics:         metrics,
		CORSAllowOrigin: cfg.CORSAllowOrigin,
		Logger:          logger,
	}

	// История запусков (опционально)
	if cfg.HistoryEnabled() {
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
		handlerCfg.Runs = repo.NewRunRepo(pool)
		logger.Info("connected to database")
	} else {
		logger.Info("DB_URL not set, run history disabled")
	}

	// Очередь (опционально)
	if cfg.QueueEnabled() {
		mqConn, err := mq.NewConnection(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, async prompts disabled", "error", err)
		} else {
			defer mqConn.Close()

			if err := mq.SetupTopology(ctx, mqConn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}
			handlerCfg.Queue = mq.NewPublisher(mqConn, logger)
			logger.Info("RabbitMQ connected")
		}
	}

	handler := api.NewHandler(handlerCfg)

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":" + cfg.APIPort

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
