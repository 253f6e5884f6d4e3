package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/roundtable-ai/orchestrator/internal/activities"
	"github.com/roundtable-ai/orchestrator/internal/config"
	"github.com/roundtable-ai/orchestrator/internal/db"
	"github.com/roundtable-ai/orchestrator/internal/llm"
	"github.com/roundtable-ai/orchestrator/internal/session"
	"github.com/roundtable-ai/orchestrator/internal/tools"
	"github.com/roundtable-ai/orchestrator/internal/tracing"
	"github.com/roundtable-ai/orchestrator/internal/workflows"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()
	shutdown, err := tracing.Initialize(cfg.Tracing, logger)
	if err != nil {
		logger.Warn("Tracing initialization failed, continuing without traces", zap.Error(err))
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	sessions, err := session.NewManager(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to connect to session store", zap.Error(err))
	}
	defer sessions.Close()

	var archive *db.Client
	if cfg.Postgres.Enabled {
		archive, err = db.NewClient(cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("Failed to connect to archive database", zap.Error(err))
		}
		defer archive.Close()
	}

	gateway := llm.NewClient(cfg.Gateway, logger)
	web := tools.NewWebSearch(cfg.Search, logger)
	wiki := tools.NewWikipedia(cfg.Search, logger)
	acts := activities.NewActivities(gateway, web, wiki, sessions, archive, logger)

	// Hot-reload any yaml alongside the main config file.
	if cfgPath := os.Getenv("CONFIG_PATH"); cfgPath != "" {
		mgr, err := config.NewManager(filepath.Dir(cfgPath), logger)
		if err != nil {
			logger.Warn("Config manager unavailable", zap.Error(err))
		} else if err := mgr.Start(); err != nil {
			logger.Warn("Config watcher failed to start", zap.Error(err))
		} else {
			defer mgr.Stop()
		}
	}

	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			addr := ":" + strconv.Itoa(cfg.Metrics.Port)
			logger.Info("Metrics server listening", zap.String("addr", addr))
			if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    newZapAdapter(logger),
	})
	if err != nil {
		logger.Fatal("Failed to connect to Temporal", zap.Error(err))
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(workflows.ResearchWorkflow, workflow.RegisterOptions{Name: workflows.ResearchWorkflowName})
	w.RegisterWorkflowWithOptions(workflows.InterviewWorkflow, workflow.RegisterOptions{Name: workflows.InterviewWorkflowName})
	registerActivities(w, acts)

	logger.Info("Research worker starting",
		zap.String("task_queue", cfg.Temporal.TaskQueue),
		zap.String("temporal", cfg.Temporal.HostPort),
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	if err := w.Start(); err != nil {
		logger.Fatal("Worker failed to start", zap.Error(err))
	}
	<-stop
	logger.Info("Shutting down research worker")
	w.Stop()
}
