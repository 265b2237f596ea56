package validate

import (
	"encoding/json"
	"fmt"

	"github.com/wardenhq/warden/internal/model"
)

// meterInput is the Ceilometer-compatible `/v2.0/meters` sample shape
// (spec.md §6, supplemented from kiloeyes/middleware/meter_validator.py —
// see SPEC_FULL.md §12).
type meterInput struct {
	CounterName   string   `json:"counter_name"`
	CounterVolume *float64 `json:"counter_volume"`
	MessageID     string   `json:"message_id"`
	ProjectID     string   `json:"project_id"`
	Source        string   `json:"source"`
	Timestamp     *string  `json:"timestamp"`
	UserID        string   `json:"user_id"`
}

func (m meterInput) validate() error {
	switch {
	case m.CounterName == "":
		return &InvalidInput{Reason: "missing \"counter_name\""}
	case m.CounterVolume == nil:
		return &InvalidInput{Reason: "missing \"counter_volume\""}
	case m.MessageID == "":
		return &InvalidInput{Reason: "missing \"message_id\""}
	case m.ProjectID == "":
		return &InvalidInput{Reason: "missing \"project_id\""}
	case m.Source == "":
		return &InvalidInput{Reason: "missing \"source\""}
	case m.Timestamp == nil || *m.Timestamp == "":
		return &InvalidInput{Reason: "missing \"timestamp\""}
	case m.UserID == "":
		return &InvalidInput{Reason: "missing \"user_id\""}
	}
	return nil
}

// toSample maps a Ceilometer meter sample onto the native metric sample
// shape: counter_name -> name, counter_volume -> value, message_id/source
// become dimensions so they survive into the stored document.
func (m meterInput) toSample() model.Sample {
	ts, err := parseISOOrEpoch(*m.Timestamp)
	if err != nil {
		ts = 0
	}
	return model.Sample{
		Name: m.CounterName,
		Dimensions: map[string]string{
			"message_id": m.MessageID,
			"source":     m.Source,
		},
		Timestamp: ts,
		Value:     *m.CounterVolume,
		ProjectID: m.ProjectID,
		UserID:    m.UserID,
	}
}

// ParseMeters validates a `POST /v2.0/meters` body per spec.md §6's
// Ceilometer-compatibility contract.
func ParseMeters(body []byte) ([]model.Sample, error) {
	trimmed := skipLeadingSpace(body)
	if len(trimmed) == 0 {
		return nil, &InvalidInput{Reason: "empty body"}
	}

	if trimmed[0] == '[' {
		var inputs []meterInput
		if err := json.Unmarshal(body, &inputs); err != nil {
			return nil, &InvalidInput{Reason: fmt.Sprintf("malformed JSON: %v", err)}
		}
		samples := make([]model.Sample, 0, len(inputs))
		for _, in := range inputs {
			if err := in.validate(); err != nil {
				return nil, err
			}
			samples = append(samples, in.toSample())
		}
		return samples, nil
	}

	var in meterInput
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, &InvalidInput{Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	return []model.Sample{in.toSample()}, nil
}
