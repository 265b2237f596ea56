// Command notifier drains the alarms topic and dispatches each alarm
// event's configured actions to their resolved notification methods, per
// spec.md §4.5.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/wardenhq/warden/internal/bus"
	"github.com/wardenhq/warden/internal/bus/redisbus"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/notify"
	"github.com/wardenhq/warden/internal/obsmetrics"
	"github.com/wardenhq/warden/internal/store"
	"github.com/wardenhq/warden/internal/store/httpstore"
	"github.com/wardenhq/warden/pkg/version"
)

func main() {
	loader := config.NewLoader("WARDEN")
	loader.FlagSet().String("smtp-host", "localhost", "SMTP server host for EMAIL deliveries")
	loader.FlagSet().Int("smtp-port", 25, "SMTP server port")
	loader.FlagSet().String("smtp-from", "warden@localhost", "From address for EMAIL deliveries")
	loader.FlagSet().String("metrics-addr", ":9090", "Listen address for the /metrics endpoint")
	showVersion := loader.FlagSet().Bool("version", false, "Print version and exit")

	var cfg config.Notifier
	if err := loader.Parse(os.Args[1:], &cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Printf("warden-notifier %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.ParseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	slog.Info("starting warden notifier", "version", version.Version)

	strategy := store.NewStrategy(cfg.IndexStrategy, cfg.IndexGranularity, cfg.FixedIndexName)
	docStore := httpstore.New(httpstore.Config{URI: cfg.URI, IndexPrefix: cfg.IndexPrefix}, strategy)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer, err := redisbus.NewConsumer(redisbus.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Config: bus.Config{
			Group:      "warden-notifier",
			WaitTime:   cfg.WaitTime,
			AutoCommit: cfg.AutoCommit,
		},
	}, "alarms", "notifier")
	if err != nil {
		slog.Error("failed to connect to the bus", "error", err)
		os.Exit(1)
	}

	deliverers := map[model.NotificationType]notify.Deliverer{
		model.NotificationWebhook:   notify.NewWebhookDeliverer(),
		model.NotificationPagerDuty: notify.NewPagerDutyDeliverer(),
		model.NotificationEmail: notify.NewEmailDeliverer(notify.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			From: cfg.SMTPFrom,
		}),
	}

	metrics := obsmetrics.New()
	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, metrics.Handler()); err != nil {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	c := notify.NewConsumer(consumer, docStore, deliverers, metrics)
	c.Start(ctx)

	<-ctx.Done()
	slog.Info("shutting down")
	c.Stop()
}
