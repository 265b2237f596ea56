package alarmexpr

import (
	"math"

	"github.com/wardenhq/warden/internal/model"
)

// Undefined marks an aggregate result computed over an empty value set
// (except COUNT, which returns 0 for an empty set per spec.md §4.2).
var Undefined = math.NaN()

// IsUndefined reports whether v is the calculator's UNDEFINED sentinel.
func IsUndefined(v float64) bool {
	return math.IsNaN(v)
}

// Aggregate implements spec.md §4.2's aggregate(func, values): SUM/AVG/MAX/
// MIN/COUNT over a vector of samples, UNDEFINED on an empty vector except
// for COUNT (which returns 0).
func Aggregate(fn string, values []float64) float64 {
	if fn == "COUNT" {
		return float64(len(values))
	}
	if len(values) == 0 {
		return Undefined
	}
	switch fn {
	case "SUM":
		var s float64
		for _, v := range values {
			s += v
		}
		return s
	case "AVG":
		var s float64
		for _, v := range values {
			s += v
		}
		return s / float64(len(values))
	case "MAX":
		m := values[0]
		for _, v := range values[1:] {
			if v > m {
				m = v
			}
		}
		return m
	case "MIN":
		m := values[0]
		for _, v := range values[1:] {
			if v < m {
				m = v
			}
		}
		return m
	default:
		return Undefined
	}
}

// satisfies reports whether v satisfies op relative to threshold t, per the
// LT/LTE/GT/GTE mapping in spec.md §4.2.
func satisfies(op string, v, t float64) bool {
	switch op {
	case "LT":
		return v < t
	case "LTE":
		return v <= t
	case "GT":
		return v > t
	case "GTE":
		return v >= t
	default:
		return false
	}
}

// Compare implements spec.md §4.2's compare(values, op, threshold): OK if
// any defined value fails the op, else UNDETERMINED if any value is
// UNDEFINED, else ALARM (every period must satisfy the op for ALARM).
func Compare(values []float64, op string, threshold float64) model.State {
	sawUndefined := false
	for _, v := range values {
		if IsUndefined(v) {
			sawUndefined = true
			continue
		}
		if !satisfies(op, v, threshold) {
			return model.StateOK
		}
	}
	if sawUndefined {
		return model.StateUndetermined
	}
	return model.StateAlarm
}

// Combine implements spec.md §4.2's combine(logical_op, children_states):
// three-valued AND/OR.
func Combine(op LogicalOp, states []model.State) model.State {
	switch op {
	case OpAnd:
		sawUndetermined := false
		for _, s := range states {
			if s == model.StateOK {
				return model.StateOK
			}
			if s == model.StateUndetermined {
				sawUndetermined = true
			}
		}
		if sawUndetermined {
			return model.StateUndetermined
		}
		return model.StateAlarm
	case OpOr:
		sawUndetermined := false
		for _, s := range states {
			if s == model.StateAlarm {
				return model.StateAlarm
			}
			if s == model.StateUndetermined {
				sawUndetermined = true
			}
		}
		if sawUndetermined {
			return model.StateUndetermined
		}
		return model.StateOK
	default:
		return model.StateUndetermined
	}
}
