package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wardenhq/warden/internal/bus/bustest"
	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/store"
)

// fakeStore is an in-memory store.Client double for exercising the HTTP
// layer without a real document store.
type fakeStore struct {
	store.Client
	alarmDefs map[string]model.AlarmDefinition
	notifs    map[string]model.NotificationMethod
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		alarmDefs: map[string]model.AlarmDefinition{},
		notifs:    map[string]model.NotificationMethod{},
	}
}

func (f *fakeStore) ListAlarmDefinitions(_ context.Context, nameFilter string, _ map[string]string) ([]model.AlarmDefinition, error) {
	var out []model.AlarmDefinition
	for _, d := range f.alarmDefs {
		if nameFilter == "" || d.Name == nameFilter {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) GetAlarmDefinition(_ context.Context, id string) (model.AlarmDefinition, error) {
	d, ok := f.alarmDefs[id]
	if !ok {
		return model.AlarmDefinition{}, &store.NotFound{DocType: "alarm_definitions", ID: id}
	}
	return d, nil
}

func (f *fakeStore) PutAlarmDefinition(_ context.Context, d model.AlarmDefinition) error {
	f.alarmDefs[d.ID] = d
	return nil
}

func (f *fakeStore) DeleteAlarmDefinition(_ context.Context, id string) error {
	delete(f.alarmDefs, id)
	return nil
}

func (f *fakeStore) GetNotificationMethod(_ context.Context, id string) (model.NotificationMethod, error) {
	m, ok := f.notifs[id]
	if !ok {
		return model.NotificationMethod{}, &store.NotFound{DocType: "notification_methods", ID: id}
	}
	return m, nil
}

func (f *fakeStore) ListNotificationMethods(_ context.Context) ([]model.NotificationMethod, error) {
	var out []model.NotificationMethod
	for _, m := range f.notifs {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeStore) PutNotificationMethod(_ context.Context, m model.NotificationMethod) error {
	f.notifs[m.ID] = m
	return nil
}

func (f *fakeStore) DeleteNotificationMethod(_ context.Context, id string) error {
	delete(f.notifs, id)
	return nil
}

func TestIngress_Metrics_ValidSample(t *testing.T) {
	b := bustest.New()
	s := New(Config{Store: newFakeStore(), Producer: b.Producer()})

	body := []byte(`{"name":"x","dimensions":{"host":"h1"},"timestamp":1,"value":2}`)
	req := httptest.NewRequest(http.MethodPost, "/v2.0/metrics", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	consumer := b.Consumer("metrics")
	msg, err := consumer.Receive(context.Background())
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	var env model.MetricEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Metric.Name != "x" {
		t.Errorf("envelope metric name = %q, want x", env.Metric.Name)
	}
}

// TestIngress_Metrics_MissingFields exercises spec.md §8 scenario 6: a
// sample missing timestamp and dimensions returns 400 and nothing reaches
// the bus.
func TestIngress_Metrics_MissingFields(t *testing.T) {
	b := bustest.New()
	s := New(Config{Store: newFakeStore(), Producer: b.Producer()})

	body := []byte(`{"name":"x","value":1}`)
	req := httptest.NewRequest(http.MethodPost, "/v2.0/metrics", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	consumer := b.Consumer("metrics")
	if _, err := consumer.Receive(context.Background()); err == nil {
		t.Fatal("expected no message forwarded to the bus")
	}
}

func TestAlarmDefinitions_CreateThenUpdateRuleViolation(t *testing.T) {
	fs := newFakeStore()
	s := New(Config{Store: fs, Producer: bustest.New().Producer()})

	createBody := []byte(`{"name":"high-cpu","expression":"max(cpu)>10"}`)
	req := httptest.NewRequest(http.MethodPost, "/v2.0/alarm-definitions", bytes.NewReader(createBody))
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201, body=%s", w.Code, w.Body.String())
	}
	var created model.AlarmDefinition
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal created def: %v", err)
	}

	// Same metric/operator, different threshold: legal update.
	updateBody := []byte(`{"name":"high-cpu","expression":"max(cpu)>20"}`)
	req = httptest.NewRequest(http.MethodPut, "/v2.0/alarm-definitions/"+created.ID, bytes.NewReader(updateBody))
	w = httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("legal update status = %d, want 200, body=%s", w.Code, w.Body.String())
	}

	// Different metric name: violates the §4.3 update rule.
	badBody := []byte(`{"name":"high-cpu","expression":"max(mem)>20"}`)
	req = httptest.NewRequest(http.MethodPut, "/v2.0/alarm-definitions/"+created.ID, bytes.NewReader(badBody))
	w = httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("illegal update status = %d, want 400", w.Code)
	}
}

func TestNotificationMethods_EmailShapeValidation(t *testing.T) {
	fs := newFakeStore()
	s := New(Config{Store: fs, Producer: bustest.New().Producer()})

	bad := []byte(`{"name":"ops","type":"EMAIL","address":"not-an-email"}`)
	req := httptest.NewRequest(http.MethodPost, "/v2.0/notification-methods", bytes.NewReader(bad))
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	good := []byte(`{"name":"ops","type":"EMAIL","address":"ops@example.com"}`)
	req = httptest.NewRequest(http.MethodPost, "/v2.0/notification-methods", bytes.NewReader(good))
	w = httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", w.Code, w.Body.String())
	}
}

func TestVersions(t *testing.T) {
	s := New(Config{Store: newFakeStore(), Producer: bustest.New().Producer()})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want 200", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v3.0", nil)
	w = httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("GET /v3.0 status = %d, want 501", w.Code)
	}
}
