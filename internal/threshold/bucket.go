package threshold

import (
	"time"

	"github.com/wardenhq/warden/internal/model"
)

// sampleEntry is one {value, ts} pair in a leaf's sliding-window deque.
type sampleEntry struct {
	value float64
	ts    time.Time
}

// subState holds one sub-expression's window of samples and last-computed
// state within a bucket, keyed externally by the leaf's canonical string.
type subState struct {
	desc    model.SubAlarmDescriptor
	state   model.State
	samples []sampleEntry
	values  []float64
}

// truncate drops samples older than now-period*periods, per spec.md §4.3
// step 1 and invariant (c).
func (s *subState) truncate(now time.Time) {
	cutoff := now.Add(-time.Duration(s.desc.Period*s.desc.Periods) * time.Second)
	i := 0
	for i < len(s.samples) && s.samples[i].ts.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.samples = s.samples[i:]
	}
}

// windowValues partitions the deque into `periods` windows of width `period`
// anchored at now (window i covers [now-(i+1)*period, now-i*period)),
// aggregating each with fn, padding with UNDEFINED where no sample falls in
// that range.
func (s *subState) windowValues(now time.Time, aggregate func(fn string, vs []float64) float64) []float64 {
	period := time.Duration(s.desc.Period) * time.Second
	out := make([]float64, s.desc.Periods)
	for i := 0; i < s.desc.Periods; i++ {
		hi := now.Add(-time.Duration(i) * period)
		lo := now.Add(-time.Duration(i+1) * period)
		var vs []float64
		for _, e := range s.samples {
			if !e.ts.Before(lo) && e.ts.Before(hi) {
				vs = append(vs, e.value)
			}
		}
		out[i] = aggregate(s.desc.Function, vs)
	}
	return out
}

// bucket is per-match-key evaluation state for one alarm definition.
type bucket struct {
	state           model.State
	createdTS       time.Time
	updatedTS       time.Time
	stateUpdatedTS  time.Time
	subStates       map[string]*subState // keyed by leaf canonical_string
	matchKeyValues  map[string]string    // match_by key -> dimension value, for event metric descriptors
}

func newBucket(now time.Time) *bucket {
	return &bucket{
		state:          model.StateUndetermined,
		createdTS:      now,
		updatedTS:      now,
		stateUpdatedTS: now,
		subStates:      make(map[string]*subState),
		matchKeyValues: make(map[string]string),
	}
}
