package threshold

import (
	"log/slog"
	"sync"
	"time"

	"github.com/wardenhq/warden/internal/model"
)

// entry pairs a live Processor with its refresher bookkeeping.
type entry struct {
	proc       *Processor
	serialized string
	epoch      bool
}

// Catalog is the shared, mutex-guarded map of live Threshold Processors
// described in spec.md §3 "Ownership" and §5: the Alarm-Def Refresher
// exclusively mutates it, while the Metrics Consumer and Alarm Publisher
// hold shared read/iterate access. One exclusive mutex guards all three,
// matching the design note in spec.md §9 ("use one exclusive mutex rather
// than a read-write lock").
type Catalog struct {
	mu      sync.Mutex
	entries map[string]*entry
	epoch   bool
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]*entry)}
}

// Ingest dispatches sample to every live processor. Called by the Metrics
// Consumer for each record drained from the metrics topic.
func (c *Catalog) Ingest(sample model.Sample, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		e.proc.Ingest(sample, now)
	}
}

// Evaluate invokes Evaluate() on every live processor and returns the
// concatenation of all produced alarm events. Called by the Alarm
// Publisher on its tick.
func (c *Catalog) Evaluate(now time.Time) []model.AlarmEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var events []model.AlarmEvent
	for _, e := range c.entries {
		events = append(events, e.proc.Evaluate(now)...)
	}
	return events
}

// Len reports the number of live processors, for tests and metrics.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Reconcile implements the Alarm-Def Refresher tick (spec.md §4.4): flip the
// epoch bit, create/update processors for every definition in defs, then
// delete every processor whose epoch still matches the previous tick (i.e.
// was not present in defs this round).
func (c *Catalog) Reconcile(defs []model.AlarmDefinition) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch = !c.epoch

	for _, d := range defs {
		serialized := d.Serialized()
		e, exists := c.entries[d.ID]
		switch {
		case !exists:
			proc, err := NewProcessor(d)
			if err != nil {
				slog.Error("alarm-def refresher: skipping unparseable definition", "id", d.ID, "error", err)
				continue
			}
			c.entries[d.ID] = &entry{proc: proc, serialized: serialized, epoch: c.epoch}
		case e.serialized != serialized:
			if !e.proc.Update(d) {
				slog.Error("alarm-def refresher: update rejected, keeping prior definition", "id", d.ID)
			}
			e.serialized = serialized
			e.epoch = c.epoch
		default:
			e.epoch = c.epoch
		}
	}

	for id, e := range c.entries {
		if e.epoch != c.epoch {
			delete(c.entries, id)
		}
	}
}
