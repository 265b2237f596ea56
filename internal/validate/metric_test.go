package validate

import (
	"net/http"
	"testing"

	"github.com/wardenhq/warden/internal/model"
)

func TestParseMetrics_MissingFieldsReject(t *testing.T) {
	_, err := ParseMetrics([]byte(`{"name":"x","value":1}`))
	if err == nil {
		t.Fatal("expected error for missing timestamp and dimensions")
	}
	if _, ok := err.(*InvalidInput); !ok {
		t.Errorf("error type = %T, want *InvalidInput", err)
	}
}

func TestParseMetrics_ValidObject(t *testing.T) {
	samples, err := ParseMetrics([]byte(`{"name":"cpu","dimensions":{"host":"h1"},"timestamp":1000,"value":42.5}`))
	if err != nil {
		t.Fatalf("ParseMetrics() error = %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("len(samples) = %d, want 1", len(samples))
	}
	if samples[0].Name != "cpu" || samples[0].Value != 42.5 {
		t.Errorf("sample = %+v, unexpected", samples[0])
	}
}

func TestParseMetrics_ValidList(t *testing.T) {
	body := `[{"name":"a","dimensions":{},"timestamp":1,"value":1},{"name":"b","dimensions":{},"timestamp":2,"value":2}]`
	samples, err := ParseMetrics([]byte(body))
	if err != nil {
		t.Fatalf("ParseMetrics() error = %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("len(samples) = %d, want 2", len(samples))
	}
}

func TestParseMetrics_MalformedJSON(t *testing.T) {
	if _, err := ParseMetrics([]byte(`{not json`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestParseMeters_MissingFieldsReject(t *testing.T) {
	_, err := ParseMeters([]byte(`{"counter_name":"x"}`))
	if err == nil {
		t.Fatal("expected error for missing meter fields")
	}
}

func TestParseMeters_Valid(t *testing.T) {
	body := `{"counter_name":"instance","counter_volume":1,"message_id":"m1","project_id":"p1","source":"s1","timestamp":"1000","user_id":"u1"}`
	samples, err := ParseMeters([]byte(body))
	if err != nil {
		t.Fatalf("ParseMeters() error = %v", err)
	}
	if len(samples) != 1 || samples[0].Name != "instance" {
		t.Errorf("samples = %+v, unexpected", samples)
	}
}

func TestKeystoneAugment(t *testing.T) {
	h := http.Header{}
	h.Set("X-Tenant-Id", "t1")
	h.Set("X-Project-Id", "p1")
	h.Set("X-User-Id", "u1")

	s := model.Sample{}
	KeystoneAugment(&s, h)

	if s.TenantID != "t1" || s.ProjectID != "p1" || s.UserID != "u1" {
		t.Errorf("sample provenance = %+v, unexpected", s)
	}
}

func TestKeystoneAugment_DoesNotOverwrite(t *testing.T) {
	h := http.Header{}
	h.Set("X-Tenant-Id", "header-value")

	s := model.Sample{TenantID: "body-value"}
	KeystoneAugment(&s, h)

	if s.TenantID != "body-value" {
		t.Errorf("TenantID = %q, want body-value preserved", s.TenantID)
	}
}
