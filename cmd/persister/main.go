// Command persister drains one bus topic and writes every record into the
// document store, per spec.md §4.5. One process instance handles exactly one
// topic ("metrics" or "alarms"); run two instances to cover both.
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
	"github.com/wardenhq/warden/internal/obsmetrics"
	"github.com/wardenhq/warden/internal/persist"
	"github.com/wardenhq/warden/internal/store"
	"github.com/wardenhq/warden/internal/store/httpstore"
	"github.com/wardenhq/warden/pkg/version"
)

func main() {
	loader := config.NewLoader("WARDEN")
	loader.FlagSet().String("topic", "metrics", "Topic to persist: metrics or alarms")
	loader.FlagSet().String("metrics-addr", ":9090", "Listen address for the /metrics endpoint")
	showVersion := loader.FlagSet().Bool("version", false, "Print version and exit")

	var cfg config.Persister
	if err := loader.Parse(os.Args[1:], &cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Printf("warden-persister %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.ParseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	slog.Info("starting warden persister", "topic", cfg.Topic, "version", version.Version)

	docType, transform, err := persisterKind(cfg.Topic)
	if err != nil {
		slog.Error("invalid topic", "topic", cfg.Topic, "error", err)
		os.Exit(1)
	}

	strategy := store.NewStrategy(cfg.IndexStrategy, cfg.IndexGranularity, cfg.FixedIndexName)
	docStore := httpstore.New(httpstore.Config{URI: cfg.URI, IndexPrefix: cfg.IndexPrefix}, strategy)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if docType == "metrics" {
		if err := docStore.EnsureTemplate(ctx); err != nil {
			slog.Error("failed to ensure document-store template", "error", err)
			os.Exit(1)
		}
	}

	consumer, err := redisbus.NewConsumer(redisbus.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Config: bus.Config{
			Group:      "warden-persister-" + cfg.Topic,
			WaitTime:   cfg.WaitTime,
			AutoCommit: cfg.AutoCommit,
		},
	}, cfg.Topic, "persister")
	if err != nil {
		slog.Error("failed to connect to the bus", "error", err)
		os.Exit(1)
	}

	metrics := obsmetrics.New()
	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, metrics.Handler()); err != nil {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	p := persist.New(consumer, docStore, docType, strategy, transform, metrics)
	p.Start(ctx)

	<-ctx.Done()
	slog.Info("shutting down")
	p.Stop()
}

func persisterKind(topic string) (docType string, transform persist.Transform, err error) {
	switch topic {
	case "metrics":
		return "metrics", persist.MetricsTransform, nil
	case "alarms":
		return "alarms", persist.AlarmsTransform, nil
	default:
		return "", nil, fmt.Errorf("topic must be metrics or alarms, got %q", topic)
	}
}
