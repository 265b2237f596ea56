// Package model holds the domain types shared across Warden's binaries:
// metric samples, alarm definitions, sub-alarm descriptors and the
// alarm events the threshold engine emits.
package model

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// Severity is the alarm-definition severity enum. Unknown values default to
// LOW per spec.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// NormalizeSeverity maps an arbitrary input string to a known Severity,
// defaulting to LOW.
func NormalizeSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(s)
	default:
		return SeverityLow
	}
}

// State is the three-valued alarm/sub-alarm state.
type State string

const (
	StateOK            State = "OK"
	StateAlarm         State = "ALARM"
	StateUndetermined  State = "UNDETERMINED"
)

// NotificationType enumerates supported notification-method delivery kinds.
type NotificationType string

const (
	NotificationEmail     NotificationType = "EMAIL"
	NotificationPagerDuty NotificationType = "PAGEDUTY"
	NotificationWebhook   NotificationType = "WEBHOOK"
)

// Sample is a single metric measurement as received at the ingress.
type Sample struct {
	Name          string            `json:"name"`
	Timestamp     float64           `json:"timestamp"`
	Value         float64           `json:"value"`
	Dimensions    map[string]string `json:"dimensions"`
	Tenant        string            `json:"tenant,omitempty"`
	TenantID      string            `json:"tenant_id,omitempty"`
	User          string            `json:"user,omitempty"`
	UserAgent     string            `json:"user_agent,omitempty"`
	ProjectID     string            `json:"project_id,omitempty"`
	UserID        string            `json:"user_id,omitempty"`
	DimensionsHash string           `json:"dimensions_hash,omitempty"`
}

// Validate rejects a sample with an empty name and replaces nil dimensions
// with an empty map. Timestamp and value are not checked.
func (s *Sample) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("metric sample missing name")
	}
	if s.Dimensions == nil {
		s.Dimensions = map[string]string{}
	}
	return nil
}

// ApplyDimensionsHash computes and attaches the md5 of the canonical
// (sort_keys) JSON encoding of the dimensions map.
func (s *Sample) ApplyDimensionsHash() {
	s.DimensionsHash = DimensionsHash(s.Dimensions)
}

// DimensionsHash computes md5(canonical_json(dimensions, sort_keys=true)).
func DimensionsHash(dims map[string]string) string {
	keys := make([]string, 0, len(dims))
	for k := range dims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := make([]byte, 0, 64)
	buf = append(buf, '{')
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(dims[k])
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	sum := md5.Sum(buf)
	return fmt.Sprintf("%x", sum)
}

// MetricEnvelope is the per-sample wrapper the ingress sends onto the
// metrics bus topic (spec.md §6 "Ingress HTTP"):
// `{"metric": …, "meta": {"tenantId": …, "region": null}, "creation_time": …}`.
// Every consumer of the metrics topic (the Persister's MetricsTransform,
// the threshold engine's MetricsConsumer) must unwrap this envelope to
// reach the underlying Sample — the raw bus message is never a bare Sample.
type MetricEnvelope struct {
	Metric       Sample             `json:"metric"`
	Meta         MetricEnvelopeMeta `json:"meta"`
	CreationTime float64            `json:"creation_time"`
}

// MetricEnvelopeMeta carries the provenance fields the ingress attaches
// from the request, per spec.md §6.
type MetricEnvelopeMeta struct {
	TenantID string  `json:"tenantId"`
	Region   *string `json:"region"`
}

// SubAlarmDescriptor is one leaf of an alarm definition's boolean tree.
type SubAlarmDescriptor struct {
	Function        string            `json:"function"`
	MetricName      string            `json:"metric_name"`
	Dimensions      map[string]string `json:"dimensions"`
	Operator        string            `json:"operator"`
	Threshold       float64           `json:"threshold"`
	Period          int               `json:"period"`
	Periods         int               `json:"periods"`
	CanonicalString string            `json:"canonical_string"`
}

// AlarmDefinition is the user-authored alarm-expression record.
type AlarmDefinition struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	Description         string               `json:"description"`
	Expression          string               `json:"expression"`
	MatchBy             []string             `json:"match_by"`
	Severity            Severity             `json:"severity"`
	AlarmActions        []string             `json:"alarm_actions"`
	OKActions           []string             `json:"ok_actions"`
	UndeterminedActions []string             `json:"undetermined_actions"`
	ExpressionData      []SubAlarmDescriptor `json:"expression_data"`
}

// ActionsFor returns the configured notification-method ids for a state.
func (d *AlarmDefinition) ActionsFor(s State) []string {
	switch s {
	case StateAlarm:
		return d.AlarmActions
	case StateOK:
		return d.OKActions
	default:
		return d.UndeterminedActions
	}
}

// Serialized returns a stable JSON form used by the refresher to detect
// changes between the live copy and the store's copy.
func (d *AlarmDefinition) Serialized() string {
	b, _ := json.Marshal(d)
	return string(b)
}

// MetricDescriptor names a metric+dimension pair that fed an alarm bucket.
type MetricDescriptor struct {
	Name       string            `json:"name"`
	Dimensions map[string]string `json:"dimensions"`
}

// Values is a slice of computed window values that may include the
// calculator's UNDEFINED sentinel (NaN) — a routine result, not an error,
// whenever a window has no samples. encoding/json cannot encode NaN, so
// Values marshals each undefined entry as JSON null and unmarshals null
// back to NaN, instead of letting it reach json.Marshal as a raw float64
// and fail the whole containing document.
type Values []float64

// MarshalJSON implements json.Marshaler.
func (v Values) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(v))
	for i, f := range v {
		if math.IsNaN(f) {
			continue
		}
		val := f
		out[i] = &val
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Values) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Values, len(raw))
	for i, p := range raw {
		if p == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *p
		}
	}
	*v = out
	return nil
}

// SubAlarmResult reports one leaf's contribution to an emitted alarm event.
type SubAlarmResult struct {
	SubAlarmExpression string `json:"sub_alarm_expression"`
	SubAlarmState      State  `json:"sub_alarm_state"`
	CurrentValues      Values `json:"current_values"`
}

// AlarmEvent is emitted by a Threshold Processor on a bucket state
// transition, and consumed by the Notification Consumer.
type AlarmEvent struct {
	ID                  string              `json:"id"`
	AlarmDefinition     AlarmDefinition     `json:"alarm_definition"`
	Metrics             []MetricDescriptor  `json:"metrics"`
	State               State               `json:"state"`
	Reason              string              `json:"reason"`
	ReasonData          map[string]any      `json:"reason_data"`
	SubAlarms           []SubAlarmResult    `json:"sub_alarms"`
	CreatedTimestamp    time.Time           `json:"created_timestamp"`
	UpdatedTimestamp    time.Time           `json:"updated_timestamp"`
	StateUpdatedTimestamp time.Time         `json:"state_updated_timestamp"`
}

// NotificationMethod is a delivery target referenced from alarm actions.
type NotificationMethod struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Type    NotificationType `json:"type"`
	Address string           `json:"address"`
}
