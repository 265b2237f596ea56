// Command api runs Warden's HTTP surface: metrics/meters ingress, the
// read-only query views, and alarm-definition / alarm / notification-method
// CRUD, modeled on the teacher's cmd/server/main.go wiring shape.
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

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/wardenhq/warden/internal/alarmexpr"
	"github.com/wardenhq/warden/internal/bus"
	"github.com/wardenhq/warden/internal/bus/redisbus"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/httpapi"
	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/obsmetrics"
	"github.com/wardenhq/warden/internal/store"
	"github.com/wardenhq/warden/internal/store/httpstore"
	"github.com/wardenhq/warden/pkg/version"
)

func main() {
	loader := config.NewLoader("WARDEN")
	loader.FlagSet().String("listen-addr", ":8080", "HTTP listen address")
	loader.FlagSet().String("import-defs", "", "Path to a YAML file of alarm definitions to import at startup")
	showVersion := loader.FlagSet().Bool("version", false, "Print version and exit")

	var cfg config.API
	if err := loader.Parse(os.Args[1:], &cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Printf("warden-api %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.ParseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	slog.Info("starting warden api", "listen_addr", cfg.ListenAddr, "version", version.Version)

	strategy := store.NewStrategy(cfg.IndexStrategy, cfg.IndexGranularity, cfg.FixedIndexName)
	docStore := httpstore.New(httpstore.Config{URI: cfg.URI, IndexPrefix: cfg.IndexPrefix}, strategy)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := docStore.EnsureTemplate(ctx); err != nil {
		slog.Error("failed to ensure document-store template", "error", err)
		os.Exit(1)
	}

	producer, err := redisbus.NewProducer(redisbus.Config{
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
		slog.Error("failed to connect to the bus", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	metrics := obsmetrics.New()

	if cfg.ImportDefs != "" {
		if err := importAlarmDefinitions(ctx, docStore, cfg.ImportDefs); err != nil {
			slog.Error("failed to import alarm definitions", "path", cfg.ImportDefs, "error", err)
			os.Exit(1)
		}
	}

	// The alarm-event stream is fed by the alarms topic rather than called
	// directly by the Alarm Publisher, which runs in a separate process
	// (cmd/thresholdengine) — this process gets its own consumer group so
	// every connected WebSocket client sees every alarm event regardless of
	// what cmd/persister or cmd/notifier have already drained.
	hub := httpapi.NewAlarmHub()
	hub.Start()
	defer hub.Stop()

	streamConsumer, err := redisbus.NewConsumer(redisbus.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Config: bus.Config{
			Group:      "warden-api-stream",
			WaitTime:   cfg.WaitTime,
			AutoCommit: cfg.AutoCommit,
		},
	}, "alarms", "api")
	if err != nil {
		slog.Error("failed to connect alarm streamer to the bus", "error", err)
		os.Exit(1)
	}
	streamer := httpapi.NewAlarmStreamer(streamConsumer, hub, metrics)
	streamer.Start(ctx)
	defer streamer.Stop()

	srv := httpapi.New(httpapi.Config{
		Store:    docStore,
		Producer: producer,
		Metrics:  metrics,
		Hub:      hub,
	})

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: srv.Router}
	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("listening", "addr", cfg.ListenAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("api server failed", "error", err)
		os.Exit(1)
	}
}

// importedDefinition is one entry of an --import-defs YAML file: the same
// shape an operator would otherwise POST to /v2.0/alarm-definitions.
type importedDefinition struct {
	Name                string   `yaml:"name"`
	Description         string   `yaml:"description"`
	Expression          string   `yaml:"expression"`
	MatchBy             []string `yaml:"match_by"`
	Severity            string   `yaml:"severity"`
	AlarmActions        []string `yaml:"alarm_actions"`
	OKActions           []string `yaml:"ok_actions"`
	UndeterminedActions []string `yaml:"undetermined_actions"`
}

type definitionPutter interface {
	PutAlarmDefinition(ctx context.Context, def model.AlarmDefinition) error
}

// importAlarmDefinitions bulk-loads alarm definitions from a YAML file at
// startup, parsing each expression the same way the HTTP create path does.
func importAlarmDefinitions(ctx context.Context, put definitionPutter, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}

	var entries []importedDefinition
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("parse import file: %w", err)
	}

	for _, e := range entries {
		tree, err := alarmexpr.Parse(e.Expression)
		if err != nil {
			return fmt.Errorf("alarm definition %q: %w", e.Name, err)
		}
		leaves := tree.Leaves()
		data := make([]model.SubAlarmDescriptor, len(leaves))
		for i, l := range leaves {
			data[i] = *l
		}

		def := model.AlarmDefinition{
			ID:                  uuid.NewString(),
			Name:                e.Name,
			Description:         e.Description,
			Expression:          e.Expression,
			MatchBy:             e.MatchBy,
			Severity:            model.NormalizeSeverity(e.Severity),
			AlarmActions:        e.AlarmActions,
			OKActions:           e.OKActions,
			UndeterminedActions: e.UndeterminedActions,
			ExpressionData:      data,
		}
		if err := put.PutAlarmDefinition(ctx, def); err != nil {
			return fmt.Errorf("alarm definition %q: store: %w", e.Name, err)
		}
		slog.Info("imported alarm definition", "name", e.Name)
	}
	return nil
}
