// Command thresholdengine runs the threshold-evaluation pipeline described
// in spec.md §4: the alarm-def refresher reconciles a Catalog of Threshold
// Processors against the document store, the metrics consumer feeds samples
// into them, and the alarm publisher periodically emits produced alarm
// events onto the alarms topic.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wardenhq/warden/internal/bus"
	"github.com/wardenhq/warden/internal/bus/redisbus"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/obsmetrics"
	"github.com/wardenhq/warden/internal/store"
	"github.com/wardenhq/warden/internal/store/httpstore"
	"github.com/wardenhq/warden/internal/threshold"
	"github.com/wardenhq/warden/pkg/version"
)

func main() {
	loader := config.NewLoader("WARDEN")
	loader.FlagSet().Int("check-alarm-interval", int(threshold.DefaultPublishInterval/time.Second), "Seconds between alarm-publish ticks")
	loader.FlagSet().Int("check-alarm-def-interval", int(threshold.DefaultRefreshInterval/time.Second), "Seconds between alarm-definition refresh ticks")
	loader.FlagSet().String("alarmdef-name", "", "Only refresh alarm definitions matching this name (empty matches all)")
	loader.FlagSet().String("alarmdef-dimensions", "", "Only refresh alarm definitions matching these dimensions, k1:v1,k2:v2 (empty matches all)")
	loader.FlagSet().String("metrics-addr", ":9090", "Listen address for the /metrics endpoint")
	showVersion := loader.FlagSet().Bool("version", false, "Print version and exit")

	var cfg config.ThresholdEngine
	if err := loader.Parse(os.Args[1:], &cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Printf("warden-thresholdengine %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.ParseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	slog.Info("starting warden threshold engine", "version", version.Version)

	strategy := store.NewStrategy(cfg.IndexStrategy, cfg.IndexGranularity, cfg.FixedIndexName)
	docStore := httpstore.New(httpstore.Config{URI: cfg.URI, IndexPrefix: cfg.IndexPrefix}, strategy)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsConsumer, err := redisbus.NewConsumer(redisbus.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Config: bus.Config{
			Group:      "warden-thresholdengine-metrics",
			WaitTime:   cfg.WaitTime,
			AutoCommit: cfg.AutoCommit,
		},
	}, "metrics", "thresholdengine")
	if err != nil {
		slog.Error("failed to connect metrics consumer to the bus", "error", err)
		os.Exit(1)
	}

	alarmProducer, err := redisbus.NewProducer(redisbus.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Config: bus.Config{
			AckTime:  cfg.AckTime,
			MaxRetry: cfg.MaxRetry,
			Compact:  cfg.Compact,
		},
	})
	if err != nil {
		slog.Error("failed to connect alarm publisher to the bus", "error", err)
		os.Exit(1)
	}

	metrics := obsmetrics.New()
	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, metrics.Handler()); err != nil {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	catalog := threshold.NewCatalog()
	defFilter := threshold.DefinitionFilter{
		Name:       cfg.AlarmDefName,
		Dimensions: config.ParseDimensionFilter(cfg.AlarmDefDimensions),
	}
	refresher := threshold.NewRefresher(catalog, docStore, checkInterval(cfg.CheckAlarmDefInterval, threshold.DefaultRefreshInterval), defFilter)
	consumer := threshold.NewMetricsConsumer(catalog, metricsConsumer, metrics)
	publisher := threshold.NewAlarmPublisher(catalog, alarmProducer, checkInterval(cfg.CheckAlarmInterval, threshold.DefaultPublishInterval), cfg.MaxRetry, metrics)

	refresher.Start(ctx)
	consumer.Start(ctx)
	publisher.Start(ctx)

	<-ctx.Done()
	slog.Info("shutting down")
	publisher.Stop()
	consumer.Stop()
	refresher.Stop()
}

func checkInterval(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
