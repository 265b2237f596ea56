package threshold

import (
	"context"
	"log/slog"
	"time"

	"github.com/wardenhq/warden/internal/model"
)

// DefaultRefreshInterval is check_alarm_def_interval's default (spec.md §4.4).
const DefaultRefreshInterval = 120 * time.Second

// DefinitionSource is the subset of the store client the refresher needs:
// a filtered query for alarm definitions.
type DefinitionSource interface {
	ListAlarmDefinitions(ctx context.Context, nameFilter string, dimensionFilter map[string]string) ([]model.AlarmDefinition, error)
}

// DefinitionFilter is the "configured name/dimension filter" spec.md §4.4
// step 1 queries the store with on every tick (an empty filter matches
// all alarm definitions). It mirrors the original's
// `alarmdefinitions.name`/`alarmdefinitions.dimensions` config options.
type DefinitionFilter struct {
	Name       string
	Dimensions map[string]string
}

// Refresher runs the periodic Alarm-Def Refresher task (spec.md §4.4),
// reconciling a Catalog against the document store on a fixed interval.
// It follows the same Start/Stop/ticker shape as the teacher's alert
// evaluator.
type Refresher struct {
	catalog  *Catalog
	source   DefinitionSource
	interval time.Duration
	filter   DefinitionFilter
	cancel   context.CancelFunc
}

// NewRefresher builds a Refresher with the given tick interval (use
// DefaultRefreshInterval when the caller has no override) and name/
// dimension filter (the zero value matches every alarm definition).
func NewRefresher(catalog *Catalog, source DefinitionSource, interval time.Duration, filter DefinitionFilter) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{catalog: catalog, source: source, interval: interval, filter: filter}
}

// Start begins the background reconciliation loop: an immediate tick, then
// one every interval until ctx is cancelled or Stop is called.
func (r *Refresher) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	slog.Info("alarm-def refresher starting", "interval", r.interval)

	go func() {
		r.tick(ctx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("alarm-def refresher stopped")
				return
			case <-ticker.C:
				r.tick(ctx)
			}
		}
	}()
}

// Stop cancels the background reconciliation goroutine.
func (r *Refresher) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

// tick queries the store once and reconciles the catalog. A failed store
// query leaves the live processor map untouched, per spec.md §4.4.
func (r *Refresher) tick(ctx context.Context) {
	defs, err := r.source.ListAlarmDefinitions(ctx, r.filter.Name, r.filter.Dimensions)
	if err != nil {
		slog.Error("alarm-def refresher: store query failed, catalog unchanged", "error", err)
		return
	}
	r.catalog.Reconcile(defs)
	slog.Debug("alarm-def refresher: reconciled", "definitions", len(defs), "live_processors", r.catalog.Len())
}
