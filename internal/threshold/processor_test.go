package threshold

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/wardenhq/warden/internal/model"
)

func sample(name string, dims map[string]string, value float64) model.Sample {
	return model.Sample{Name: name, Dimensions: dims, Value: value}
}

func TestProcessor_SimpleThresholdAlarm(t *testing.T) {
	def := model.AlarmDefinition{ID: "d1", Name: "high-foo", Expression: "max(foo)>10"}
	p, err := NewProcessor(def)
	if err != nil {
		t.Fatalf("NewProcessor() error = %v", err)
	}

	now := time.Unix(1000, 0)
	p.Ingest(sample("foo", map[string]string{}, 20), now.Add(-10*time.Second))

	events := p.Evaluate(now)
	if len(events) != 1 {
		t.Fatalf("Evaluate() produced %d events, want 1", len(events))
	}
	if events[0].State != model.StateAlarm {
		t.Errorf("event state = %v, want ALARM", events[0].State)
	}
}

func TestProcessor_MatchByFanOut(t *testing.T) {
	def := model.AlarmDefinition{ID: "d2", Name: "cpu-high", Expression: "max(cpu)>100", MatchBy: []string{"host"}}
	p, err := NewProcessor(def)
	if err != nil {
		t.Fatalf("NewProcessor() error = %v", err)
	}

	now := time.Unix(2000, 0)
	p.Ingest(sample("cpu", map[string]string{"host": "A"}, 150), now)
	p.Ingest(sample("cpu", map[string]string{"host": "B"}, 50), now)
	p.Ingest(sample("cpu", map[string]string{"host": "A"}, 160), now)

	events := p.Evaluate(now.Add(10 * time.Second))
	if len(events) != 2 {
		t.Fatalf("Evaluate() produced %d events, want 2", len(events))
	}
	states := map[model.State]int{}
	for _, e := range events {
		states[e.State]++
	}
	if states[model.StateAlarm] != 1 || states[model.StateOK] != 1 {
		t.Errorf("event states = %+v, want one ALARM and one OK", states)
	}
}

func TestProcessor_ThreeValuedLogic(t *testing.T) {
	def := model.AlarmDefinition{ID: "d3", Name: "ab", Expression: "max(a)>1 and max(b)>1"}
	p, err := NewProcessor(def)
	if err != nil {
		t.Fatalf("NewProcessor() error = %v", err)
	}

	now := time.Unix(3000, 0)
	p.Ingest(sample("a", map[string]string{}, 5), now)
	later := now.Add(10 * time.Second)

	// leaf-a is ALARM and leaf-b UNDETERMINED, so AND gives UNDETERMINED;
	// that equals the bucket's initial state, so no event is emitted.
	if events := p.Evaluate(later); len(events) != 0 {
		t.Fatalf("Evaluate() produced %d events, want 0 (UNDETERMINED is the initial state)", len(events))
	}
	b := p.buckets["none"]
	leaves := p.tree.Leaves()
	if got := b.subStates[leaves[0].CanonicalString].state; got != model.StateAlarm {
		t.Errorf("leaf a state = %v, want ALARM", got)
	}
	if b.state != model.StateUndetermined {
		t.Errorf("bucket state = %v, want UNDETERMINED", b.state)
	}

	// leaf b never received a sample, so its current_values holds the
	// calculator's UNDEFINED sentinel (NaN) — json.Marshal must not choke on
	// it, since an event built from this bucket carries it.
	if _, err := json.Marshal(p.buildEvent(b, leaves, later)); err != nil {
		t.Fatalf("json.Marshal() of an UNDETERMINED event error = %v", err)
	}
}

func TestProcessor_InitialUndeterminedDoesNotEmit(t *testing.T) {
	def := model.AlarmDefinition{ID: "d4", Name: "empty", Expression: "max(nothing)>1"}
	p, err := NewProcessor(def)
	if err != nil {
		t.Fatalf("NewProcessor() error = %v", err)
	}
	// No ingest at all -> no buckets exist -> Evaluate has nothing to do.
	if events := p.Evaluate(time.Now()); len(events) != 0 {
		t.Errorf("Evaluate() with no buckets produced %d events, want 0", len(events))
	}
}

func TestProcessor_UpdatePreservesSamples(t *testing.T) {
	def := model.AlarmDefinition{ID: "d5", Name: "ab", Expression: "max(a)>1 and max(b)>1"}
	p, err := NewProcessor(def)
	if err != nil {
		t.Fatalf("NewProcessor() error = %v", err)
	}

	now := time.Unix(4000, 0)
	for i := 0; i < 5; i++ {
		p.Ingest(sample("a", nil, 2), now)
		p.Ingest(sample("b", nil, 2), now)
	}

	newDef := model.AlarmDefinition{ID: "d5", Name: "ab", Expression: "max(a)>5 and max(b)>5"}
	if !p.Update(newDef) {
		t.Fatal("Update() returned false")
	}

	for _, b := range p.buckets {
		for canon, ss := range b.subStates {
			if len(ss.samples) != 5 {
				t.Errorf("sub-state %q has %d samples after update, want 5", canon, len(ss.samples))
			}
			if ss.state != model.StateUndetermined {
				t.Errorf("sub-state %q state = %v after update, want UNDETERMINED", canon, ss.state)
			}
		}
	}
}

func TestProcessor_UpdateNoOpOnIdenticalContent(t *testing.T) {
	def := model.AlarmDefinition{ID: "d6", Name: "x", Expression: "max(a)>1"}
	p, err := NewProcessor(def)
	if err != nil {
		t.Fatalf("NewProcessor() error = %v", err)
	}
	now := time.Unix(5000, 0)
	p.Ingest(sample("a", nil, 2), now)
	if events := p.Evaluate(now.Add(10 * time.Second)); len(events) != 1 {
		t.Fatalf("first Evaluate() produced %d events, want 1", len(events))
	}

	before := len(p.buckets["none"].subStates[p.tree.CanonicalString()].samples)

	if !p.Update(def) {
		t.Fatal("Update() with identical definition returned false")
	}
	if after := len(p.buckets["none"].subStates[p.tree.CanonicalString()].samples); after != before {
		t.Errorf("samples after identical update = %d, want %d", after, before)
	}
	if events := p.Evaluate(now.Add(20 * time.Second)); len(events) != 0 {
		t.Errorf("Evaluate() after identical update produced %d events, want 0", len(events))
	}
	if got := p.buckets["none"].state; got != model.StateAlarm {
		t.Errorf("bucket state after identical update = %v, want ALARM", got)
	}
}

func TestProcessor_InvalidExpressionRejected(t *testing.T) {
	def := model.AlarmDefinition{ID: "d7", Name: "bad", Expression: "max(foo>1"}
	if _, err := NewProcessor(def); err == nil {
		t.Fatal("NewProcessor() with invalid expression expected error, got nil")
	}
}

func TestProcessor_DequeTruncation(t *testing.T) {
	def := model.AlarmDefinition{ID: "d8", Name: "x", Expression: "max(a,10)>1000"}
	p, err := NewProcessor(def)
	if err != nil {
		t.Fatalf("NewProcessor() error = %v", err)
	}
	base := time.Unix(6000, 0)
	p.Ingest(sample("a", nil, 1), base.Add(-100*time.Second)) // older than window
	p.Ingest(sample("a", nil, 1), base.Add(-1*time.Second))   // inside window

	p.Evaluate(base)

	ss := p.buckets["none"].subStates[p.tree.CanonicalString()]
	if len(ss.samples) != 1 {
		t.Errorf("samples after truncate = %d, want 1 (only the in-window sample)", len(ss.samples))
	}
}
