package model

import (
	"encoding/json"
	"math"
	"testing"
)

func TestValues_MarshalUnmarshalRoundTripsUndefined(t *testing.T) {
	v := Values{1, math.NaN(), 3}

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(b) != "[1,null,3]" {
		t.Errorf("Marshal() = %s, want [1,null,3]", b)
	}

	var out Values
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(out) != 3 || out[0] != 1 || !math.IsNaN(out[1]) || out[2] != 3 {
		t.Errorf("Unmarshal() = %v, want [1, NaN, 3]", out)
	}
}

// TestAlarmEvent_MarshalsWithUndefinedSubAlarmValues guards against
// encoding/json's UnsupportedValueError on a raw NaN: an AlarmEvent carrying
// an UNDETERMINED sub-alarm (current_values containing UNDEFINED) must still
// marshal successfully, since this is the routine case, not an error case.
func TestAlarmEvent_MarshalsWithUndefinedSubAlarmValues(t *testing.T) {
	event := AlarmEvent{
		ID:    "evt-1",
		State: StateUndetermined,
		SubAlarms: []SubAlarmResult{
			{
				SubAlarmExpression: "avg(cpu)>10",
				SubAlarmState:      StateUndetermined,
				CurrentValues:      Values{math.NaN(), math.NaN()},
			},
		},
	}

	b, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Marshal() error = %v, want no error for an UNDETERMINED sub-alarm", err)
	}

	var decoded AlarmEvent
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(decoded.SubAlarms) != 1 || len(decoded.SubAlarms[0].CurrentValues) != 2 {
		t.Fatalf("decoded sub-alarms = %+v", decoded.SubAlarms)
	}
	for _, v := range decoded.SubAlarms[0].CurrentValues {
		if !math.IsNaN(v) {
			t.Errorf("CurrentValues entry = %v, want NaN", v)
		}
	}
}
