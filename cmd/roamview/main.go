// Package main is the entry point for the roamview terrain fly-by.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/roamscape/internal/config"
	"github.com/Faultbox/roamscape/internal/logger"
	"github.com/Faultbox/roamscape/internal/viewer"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if path := config.WriteConfigPath(); path != "" {
		if err := cfg.SaveTo(path); err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", path)
		return
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.LoggerOptions()); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Log

	log.Info("=== roamview ===", zap.String("config", cfg.Path()))
	logger.Sugar.Debugf("Config: %+v", cfg)

	v, err := viewer.New(cfg, logger.Named("viewer"))
	if err != nil {
		log.Error("failed to create viewer", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	defer v.Close()

	if config.WatchEnabled() {
		if cfg.Path() == "" {
			log.Warn("-watch needs a config file, ignoring")
		} else {
			v.WatchConfig(cfg.Path())
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := v.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("fly-by failed", zap.Error(err))
		v.Close()
		logger.Sync()
		os.Exit(1)
	}

	log.Info("done",
		zap.Int("frames", sum.Frames),
		zap.Int("triangles", sum.LastTriangles),
		zap.Int("max_triangles", sum.MaxTriangles))
}
