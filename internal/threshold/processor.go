// Package threshold implements the per-alarm-definition stateful evaluator
// (spec.md §4.3), the shared processor catalog and the alarm-definition
// refresher (spec.md §4.4) that reconciles it against the document store.
package threshold

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wardenhq/warden/internal/alarmexpr"
	"github.com/wardenhq/warden/internal/model"
)

// InvalidDefinition is returned by NewProcessor when an alarm definition's expression
// fails to parse.
type InvalidDefinition struct {
	ID  string
	Err error
}

func (e *InvalidDefinition) Error() string {
	return fmt.Sprintf("invalid alarm definition %s: %v", e.ID, e.Err)
}

func (e *InvalidDefinition) Unwrap() error { return e.Err }

// Processor is the per-alarm-definition stateful evaluator described in
// spec.md §4.3. It is not safe for concurrent use on its own — callers
// (Catalog) serialize access under a single process-wide mutex, matching
// spec.md §5.
type Processor struct {
	def     model.AlarmDefinition
	tree    *alarmexpr.Node
	matchBy []string
	buckets map[string]*bucket
}

// NewProcessor builds the parse tree for def and initializes an empty
// bucket map.
func NewProcessor(def model.AlarmDefinition) (*Processor, error) {
	tree, err := alarmexpr.Parse(def.Expression)
	if err != nil {
		return nil, &InvalidDefinition{ID: def.ID, Err: err}
	}
	def.ExpressionData = copyLeaves(tree.Leaves())
	return &Processor{
		def:     def,
		tree:    tree,
		matchBy: filterEmpty(def.MatchBy),
		buckets: make(map[string]*bucket),
	}, nil
}

func copyLeaves(leaves []*model.SubAlarmDescriptor) []model.SubAlarmDescriptor {
	out := make([]model.SubAlarmDescriptor, len(leaves))
	for i, l := range leaves {
		out[i] = *l
	}
	return out
}

func filterEmpty(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Definition returns the processor's currently held alarm definition.
func (p *Processor) Definition() model.AlarmDefinition { return p.def }

// leafMatches reports whether a sample matches a leaf's metric name and
// dimension filter, per spec.md §4.3's matches() rule.
func leafMatches(leaf *model.SubAlarmDescriptor, sample model.Sample) bool {
	if !strings.EqualFold(sample.Name, leaf.MetricName) {
		return false
	}
	for k, v := range leaf.Dimensions {
		sv, ok := sample.Dimensions[k]
		if !ok || !strings.EqualFold(sv, v) {
			return false
		}
	}
	return true
}

// matchKey derives the bucket key for a matched sample: the sentinel "none"
// when match_by is empty, otherwise the match_by-ordered dimension values
// joined with a trailing comma after each. Returns ok=false when a required
// match_by key is absent from the sample (the sample is dropped for this
// leaf in that case).
func matchKey(matchBy []string, sample model.Sample) (key string, values map[string]string, ok bool) {
	if len(matchBy) == 0 {
		return "none", nil, true
	}
	values = make(map[string]string, len(matchBy))
	var b strings.Builder
	for _, k := range matchBy {
		v, present := sample.Dimensions[k]
		if !present {
			return "", nil, false
		}
		values[k] = v
		b.WriteString(v)
		b.WriteString(",")
	}
	return b.String(), values, true
}

// Ingest routes a sample into every matching leaf's sliding-window deque.
// Best-effort: unmatched leaves are silently skipped.
func (p *Processor) Ingest(sample model.Sample, now time.Time) {
	for _, leaf := range p.tree.Leaves() {
		if !leafMatches(leaf, sample) {
			continue
		}
		key, matchVals, ok := matchKey(p.matchBy, sample)
		if !ok {
			continue
		}
		b, exists := p.buckets[key]
		if !exists {
			b = newBucket(now)
			p.buckets[key] = b
		}
		for k, v := range matchVals {
			b.matchKeyValues[k] = v
		}
		ss, exists := b.subStates[leaf.CanonicalString]
		if !exists {
			ss = &subState{desc: *leaf, state: model.StateUndetermined}
			b.subStates[leaf.CanonicalString] = ss
		}
		ss.samples = append(ss.samples, sampleEntry{value: sample.Value, ts: now})
	}
}

// Evaluate recomputes every bucket's state and returns the alarm events
// produced by state transitions, per spec.md §4.3 step 5.
func (p *Processor) Evaluate(now time.Time) []model.AlarmEvent {
	leaves := p.tree.Leaves()
	var events []model.AlarmEvent

	for _, b := range p.buckets {
		for _, leaf := range leaves {
			ss, exists := b.subStates[leaf.CanonicalString]
			if !exists {
				ss = &subState{desc: *leaf, state: model.StateUndetermined}
				b.subStates[leaf.CanonicalString] = ss
			}
			ss.truncate(now)
			ss.values = ss.windowValues(now, alarmexpr.Aggregate)
			ss.state = alarmexpr.Compare(ss.values, leaf.Operator, leaf.Threshold)
		}

		newState := p.tree.Evaluate(func(c string) model.State {
			if ss, ok := b.subStates[c]; ok {
				return ss.state
			}
			return model.StateUndetermined
		})

		b.updatedTS = now
		if newState == b.state {
			continue
		}
		b.state = newState
		b.stateUpdatedTS = now
		events = append(events, p.buildEvent(b, leaves, now))
	}
	return events
}

func (p *Processor) buildEvent(b *bucket, leaves []*model.SubAlarmDescriptor, now time.Time) model.AlarmEvent {
	metrics := make([]model.MetricDescriptor, 0, len(leaves))
	subAlarms := make([]model.SubAlarmResult, 0, len(leaves))
	for _, leaf := range leaves {
		dims := make(map[string]string, len(leaf.Dimensions)+len(b.matchKeyValues))
		for k, v := range leaf.Dimensions {
			dims[k] = v
		}
		for k, v := range b.matchKeyValues {
			dims[k] = v
		}
		metrics = append(metrics, model.MetricDescriptor{Name: leaf.MetricName, Dimensions: dims})

		ss := b.subStates[leaf.CanonicalString]
		subAlarms = append(subAlarms, model.SubAlarmResult{
			SubAlarmExpression: leaf.CanonicalString,
			SubAlarmState:      ss.state,
			CurrentValues:      model.Values(ss.values),
		})
	}

	return model.AlarmEvent{
		ID:                    uuid.NewString(),
		AlarmDefinition:       p.def,
		Metrics:               metrics,
		State:                 b.state,
		Reason:                reasonFor(b.state, p.def.Name),
		ReasonData:            map[string]any{},
		SubAlarms:             subAlarms,
		CreatedTimestamp:      b.createdTS,
		UpdatedTimestamp:      b.updatedTS,
		StateUpdatedTimestamp: b.stateUpdatedTS,
	}
}

func reasonFor(state model.State, name string) string {
	switch state {
	case model.StateAlarm:
		return fmt.Sprintf("Thresholds were exceeded for the sub-alarms in alarm definition %q", name)
	case model.StateOK:
		return fmt.Sprintf("The alarm threshold(s) for %q have returned to normal", name)
	default:
		return fmt.Sprintf("Insufficient data to determine alarm state for %q", name)
	}
}

// Update re-parses def's expression and, on success, swaps in the new tree
// while preserving every bucket's sample deques by leaf position (spec.md
// §4.3). Sub-states reset to UNDETERMINED; the next Evaluate recomputes
// them. Returns false (leaving the processor unchanged) if the new
// expression fails to parse.
func (p *Processor) Update(def model.AlarmDefinition) bool {
	newTree, err := alarmexpr.Parse(def.Expression)
	if err != nil {
		return false
	}
	newLeaves := newTree.Leaves()
	oldLeaves := p.tree.Leaves()

	for _, b := range p.buckets {
		newSubStates := make(map[string]*subState, len(newLeaves))
		for i, nl := range newLeaves {
			ns := &subState{desc: *nl, state: model.StateUndetermined}
			if i < len(oldLeaves) {
				if old, ok := b.subStates[oldLeaves[i].CanonicalString]; ok {
					ns.samples = old.samples
				}
			}
			newSubStates[nl.CanonicalString] = ns
		}
		b.subStates = newSubStates
	}

	def.ExpressionData = copyLeaves(newLeaves)
	p.tree = newTree
	p.matchBy = filterEmpty(def.MatchBy)
	p.def = def
	return true
}
