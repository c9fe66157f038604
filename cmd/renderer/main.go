package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/cockroachdb/errors"

	"github.com/nycsi/renderer/internal/app"
	"github.com/nycsi/renderer/internal/assets"
	"github.com/nycsi/renderer/internal/config"
	"github.com/nycsi/renderer/internal/frame"
	"github.com/nycsi/renderer/internal/pipeline"
	"github.com/nycsi/renderer/internal/vulkan"
)

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	renderer, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer renderer.Close()

	return renderer.Run(ctx)
}

func main() {
	// SDL and the presentation engine expect every call from one thread.
	runtime.LockOSThread()

	cfg, err := config.Parse(os.Args[0], os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	} else if err != nil {
		log.Fatalf("%+v\n", err)
	}

	level, err := cfg.Level()
	if err != nil {
		log.Fatalf("%+v\n", err)
	}

	logger := slog.New(cfg.Handler(os.Stderr))
	slog.SetDefault(logger)
	app.SetLogger(logger)
	assets.SetLogger(logger.With("component", "assets"))
	frame.SetLogger(logger.With("component", "frame"))
	pipeline.SetLogger(logger.With("component", "pipeline"))
	vulkan.SetLogger(logger.With("component", "vulkan"))
	logger.Debug("configuration", "level", level, "config", cfg)

	err = run(cfg)
	if err != nil {
		log.Fatalf("%+v\n", err)
	}
}
