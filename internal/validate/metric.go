// Package validate implements the ingress middleware that checks and
// normalizes inbound metric/meter JSON before handing samples off to the
// bus (spec.md §2 "Ingestion Validators", §6 "Ingress HTTP").
package validate

import (
	"encoding/json"
	"fmt"

	"github.com/wardenhq/warden/internal/model"
)

// InvalidInput is returned on malformed JSON or a missing required field;
// HTTP handlers translate it to 400 per spec.md §7.
type InvalidInput struct {
	Reason string
}

func (e *InvalidInput) Error() string { return "invalid input: " + e.Reason }

type metricInput struct {
	Name       string             `json:"name"`
	Dimensions *map[string]string `json:"dimensions"`
	Timestamp  *float64           `json:"timestamp"`
	Value      *float64           `json:"value"`
}

func (m metricInput) toSample() (model.Sample, error) {
	if m.Name == "" {
		return model.Sample{}, &InvalidInput{Reason: "missing or empty \"name\""}
	}
	if m.Dimensions == nil {
		return model.Sample{}, &InvalidInput{Reason: "missing \"dimensions\""}
	}
	if m.Timestamp == nil {
		return model.Sample{}, &InvalidInput{Reason: "missing \"timestamp\""}
	}
	if m.Value == nil {
		return model.Sample{}, &InvalidInput{Reason: "missing \"value\""}
	}
	return model.Sample{
		Name:       m.Name,
		Dimensions: *m.Dimensions,
		Timestamp:  *m.Timestamp,
		Value:      *m.Value,
	}, nil
}

// ParseMetrics validates a `POST /v2.0/metrics` body, which may be a single
// object or a list of objects, per spec.md §6.
func ParseMetrics(body []byte) ([]model.Sample, error) {
	trimmed := skipLeadingSpace(body)
	if len(trimmed) == 0 {
		return nil, &InvalidInput{Reason: "empty body"}
	}

	if trimmed[0] == '[' {
		var inputs []metricInput
		if err := json.Unmarshal(body, &inputs); err != nil {
			return nil, &InvalidInput{Reason: fmt.Sprintf("malformed JSON: %v", err)}
		}
		samples := make([]model.Sample, 0, len(inputs))
		for _, in := range inputs {
			s, err := in.toSample()
			if err != nil {
				return nil, err
			}
			samples = append(samples, s)
		}
		return samples, nil
	}

	var in metricInput
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, &InvalidInput{Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}
	s, err := in.toSample()
	if err != nil {
		return nil, err
	}
	return []model.Sample{s}, nil
}

func skipLeadingSpace(b []byte) []byte {
	i := 0
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\n', '\r':
			i++
			continue
		}
		break
	}
	return b[i:]
}
