package persist

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/wardenhq/warden/internal/bus/bustest"
	"github.com/wardenhq/warden/internal/store"
)

type fakeStore struct {
	store.Client
	upserts []struct {
		index, docType, id string
	}
}

func (f *fakeStore) Upsert(_ context.Context, index, docType, id string, _ any) error {
	f.upserts = append(f.upserts, struct{ index, docType, id string }{index, docType, id})
	return nil
}

func TestPersister_MetricsTransformFillsTimestampAndHash(t *testing.T) {
	raw := []byte(`{"metric":{"name":"cpu","dimensions":{"host":"h1"},"value":1},"meta":{"tenantId":"t1"},"creation_time":1}`)
	out, id, err := MetricsTransform(raw)
	if err != nil {
		t.Fatalf("MetricsTransform() error = %v", err)
	}
	if id == "" {
		t.Error("expected a generated id")
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("decode transformed record: %v", err)
	}
	if decoded["timestamp"] == nil || decoded["timestamp"].(float64) == 0 {
		t.Errorf("timestamp not filled: %+v", decoded)
	}
	if decoded["dimensions_hash"] == "" || decoded["dimensions_hash"] == nil {
		t.Errorf("dimensions_hash not attached: %+v", decoded)
	}
}

func TestPersister_WritesToFakeStore(t *testing.T) {
	b := bustest.New()
	producer := b.Producer()
	if err := producer.Send(context.Background(), "metrics", []byte(`{"metric":{"name":"cpu","dimensions":{},"timestamp":1,"value":1},"meta":{},"creation_time":1}`)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	fs := &fakeStore{}
	p := New(b.Consumer("metrics"), fs, "metrics", store.Fixed{Name: "metrics_idx"}, MetricsTransform, nil)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	p.Stop()

	if len(fs.upserts) != 1 {
		t.Fatalf("len(upserts) = %d, want 1", len(fs.upserts))
	}
	if fs.upserts[0].index != "metrics_idx" || fs.upserts[0].docType != "metrics" {
		t.Errorf("upsert = %+v, unexpected", fs.upserts[0])
	}
}
