package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/packtrack/internal/client"
	"github.com/angelmondragon/packtrack/internal/notify"
	"github.com/angelmondragon/packtrack/pkg/config"
	"github.com/angelmondragon/packtrack/pkg/instance"
	"github.com/angelmondragon/packtrack/pkg/logger"
)

func main() {
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "packtrack"})

	if err := godotenv.Load(); err != nil {
		logg.Debug(context.Background(), ".env file not found, relying on environment")
	}

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "packtrack",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
		"endpoint": cfg.API.Endpoint(),
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	c, err := client.New(cfg, client.Params{
		Logger:     logg,
		Registerer: registry,
		Notifier: notify.Multi{
			notify.Log{Logger: logg},
			notify.Funcs{
				OnSuccess: func(message string) { fmt.Fprintln(os.Stderr, message) },
				OnError:   func(message string) { fmt.Fprintln(os.Stderr, "error: "+message) },
			},
		},
	})
	if err != nil {
		logg.Error(ctx, "failed to create client", err)
		os.Exit(1)
	}
	c.Start()
	defer c.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &app{cfg: cfg, logger: logg, client: c, gatherer: registry, out: os.Stdout}
	if err := app.run(ctx, os.Args[1:]); err != nil {
		logg.Error(ctx, "command failed", err)
		stop()
		c.Close()
		os.Exit(1)
	}
}
