// Package main provides the surveillance analytics pipeline entry point
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytelocker/bytelocker/internal/alert"
	"github.com/bytelocker/bytelocker/internal/api"
	"github.com/bytelocker/bytelocker/internal/bus"
	"github.com/bytelocker/bytelocker/internal/config"
	"github.com/bytelocker/bytelocker/internal/database"
	"github.com/bytelocker/bytelocker/internal/detect"
	"github.com/bytelocker/bytelocker/internal/events"
	"github.com/bytelocker/bytelocker/internal/identity"
	"github.com/bytelocker/bytelocker/internal/metrics"
	"github.com/bytelocker/bytelocker/internal/system"
	"github.com/bytelocker/bytelocker/internal/video"
)

func main() {
	configPath := flag.String("config", "config/config.yml", "path to configuration file")
	modelPath := flag.String("model", os.Getenv("DETECTION_MODEL"), "path to the ONNX detection model")
	ortLibPath := flag.String("ort-lib", os.Getenv("ONNXRUNTIME_LIB"), "path to the onnxruntime shared library")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if cfg.System.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg.System.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	slog.Info("Starting surveillance system", "name", cfg.System.Name, "cameras", len(cfg.Cameras))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database and event log
	dbCfg := database.DefaultConfig(cfg.System.DataPath)
	if cfg.Database.Path != "" {
		dbCfg.Path = cfg.Database.Path
	}
	db, err := database.Open(dbCfg)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.NewMigrator(db).Run(ctx); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	eventService := events.NewService(db)

	// Embedded message bus for alert fan-out
	msgBus, err := bus.New(bus.Config{}, logger)
	if err != nil {
		slog.Error("Failed to start message bus", "error", err)
		os.Exit(1)
	}
	defer msgBus.Stop()

	// Known-identity store, loaded once and read-only afterwards
	store := identity.NewStore(cfg.Identity.Tolerance)
	if err := store.LoadDir(cfg.Identity.Dir); err != nil {
		slog.Error("Failed to load identity store", "error", err)
		os.Exit(1)
	}

	// External detection model
	localizer, err := detect.NewONNXLocalizer(detect.ONNXConfig{
		ModelPath:   *modelPath,
		LibraryPath: *ortLibPath,
		Class:       detect.ClassPerson,
		Threshold:   float32(cfg.Analytics.MinConfidence),
	})
	if err != nil {
		slog.Error("Failed to load detection model", "model", *modelPath, "error", err)
		os.Exit(1)
	}
	defer localizer.Close()

	dispatcher := alert.NewDispatcher(alert.DispatcherConfig{
		Publisher: msgBus,
		Archiver:  eventService,
	})
	m := metrics.New()

	sys := system.New(system.Options{
		Config:     cfg,
		Dispatcher: dispatcher,
		Recorder:   eventService,
		Metrics:    m,
	})

	for _, cam := range cfg.Cameras {
		if !cam.Enabled {
			continue
		}
		detector := detect.NewAdapter(detect.AdapterConfig{
			Localizer:     localizer,
			Store:         store,
			MinConfidence: cfg.Analytics.MinConfidence,
		})
		device := video.NewHTTPDevice(cam.ID, 0)
		if err := sys.AddCamera(ctx, cam.ID, cam.Source, device, detector); err != nil {
			slog.Error("Failed to add camera", "camera", cam.ID, "error", err)
		}
	}

	sys.Start(ctx)
	defer sys.Stop()

	server, err := api.NewServer(api.ServerConfig{
		Addr:       fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		System:     sys,
		Dispatcher: dispatcher,
		Events:     eventService,
		Bus:        msgBus,
		Metrics:    m.Handler(),
	})
	if err != nil {
		slog.Error("Failed to create API server", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := server.Start(); err != nil {
			slog.Error("API server failed", "error", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("Shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("API shutdown failed", "error", err)
	}
}
