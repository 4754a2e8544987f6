package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/videogen/genqueue/internal/admission"
	"github.com/videogen/genqueue/internal/api"
	"github.com/videogen/genqueue/internal/archive"
	"github.com/videogen/genqueue/internal/config"
	"github.com/videogen/genqueue/internal/engine"
	"github.com/videogen/genqueue/internal/imaging"
	"github.com/videogen/genqueue/internal/logger"
	"github.com/videogen/genqueue/internal/outputs"
	"github.com/videogen/genqueue/internal/progress"
	"github.com/videogen/genqueue/internal/query"
	"github.com/videogen/genqueue/internal/queue"
	"github.com/videogen/genqueue/internal/registry"
	"github.com/videogen/genqueue/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logr := logger.Setup(cfg.LogLevel)

	arch, err := archive.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer arch.Close()
	logr.Info("connected to redis", "addr", cfg.RedisAddr)

	store := queue.New(arch)
	reg := registry.NewDefault()
	codec := imaging.NewCodec()

	gen, err := engine.NewSim(cfg.OutputDir, time.Duration(cfg.SimStepMS)*time.Millisecond)
	if err != nil {
		log.Fatalf("Failed to set up generator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reporter := progress.NewReporter(store, logr)
	wkr := worker.New(store, reporter, gen, logr)
	wkr.Start(ctx)

	handler := api.NewHandler(
		admission.NewController(store, reg, codec, cfg.DefaultModel),
		store,
		query.NewService(store, arch),
		reg,
		outputs.NewCatalog(cfg.OutputDir),
		codec,
		map[string]any{
			"output_dir":    cfg.OutputDir,
			"default_model": cfg.DefaultModel,
			"log_level":     cfg.LogLevel,
		},
	)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Info("server starting", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutdown signal received")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown error", "error", err)
	}

	wkr.Stop()
	logr.Info("server stopped")
}
