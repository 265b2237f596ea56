package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wardenhq/warden/internal/bus/bustest"
	"github.com/wardenhq/warden/internal/store"
)

// searchableStore extends fakeStore with a canned Search result, standing
// in for the document store's query surface (spec.md §6 "Query HTTP").
type searchableStore struct {
	*fakeStore
	result store.SearchResult
}

func (s *searchableStore) Search(context.Context, string, map[string]any) (store.SearchResult, error) {
	return s.result, nil
}

func sampleHit(name string, host string, ts, value float64) store.Hit {
	return store.Hit{Source: map[string]any{
		"name":       name,
		"value":      value,
		"timestamp":  ts,
		"dimensions": map[string]any{"host": host},
	}}
}

func TestQuery_ListMetrics_DeduplicatesByNameAndDimensions(t *testing.T) {
	now := float64(time.Now().Unix())
	ss := &searchableStore{fakeStore: newFakeStore(), result: store.SearchResult{Hits: []store.Hit{
		sampleHit("cpu", "h1", now, 10),
		sampleHit("cpu", "h1", now, 20),
		sampleHit("cpu", "h2", now, 30),
	}}}
	s := New(Config{Store: ss, Producer: bustest.New().Producer()})

	req := httptest.NewRequest(http.MethodGet, "/v2.0/metrics", nil)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	// Two distinct (name, dimensions) pairs: cpu{host=h1}, cpu{host=h2}.
	if count := countJSONArrayElements(t, w.Body.Bytes()); count != 2 {
		t.Errorf("unique metric count = %d, want 2", count)
	}
}

func TestQuery_Statistics_BucketsByPeriod(t *testing.T) {
	now := time.Now()
	ss := &searchableStore{fakeStore: newFakeStore(), result: store.SearchResult{Hits: []store.Hit{
		sampleHit("cpu", "h1", float64(now.Unix()), 10),
		sampleHit("cpu", "h1", float64(now.Unix()), 30),
	}}}
	s := New(Config{Store: ss, Producer: bustest.New().Producer()})

	req := httptest.NewRequest(http.MethodGet, "/v2.0/metrics/statistics?statistics=avg,max", nil)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
}

func countJSONArrayElements(t *testing.T, body []byte) int {
	t.Helper()
	var out []map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return len(out)
}
