package httpapi

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wardenhq/warden/internal/alarmexpr"
	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/store"
)

// QueryHandler implements the read-only views over the document store
// (spec.md §6 "Query HTTP"): the unique name/dimensions listing, raw
// measurements, and time-bucketed statistics.
type QueryHandler struct {
	Store store.Client
}

const metricsDocType = "metrics"

// parseDimensions parses a "k1:v1,k2:v2" filter string.
func parseDimensions(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		kv := strings.SplitN(pair, ":", 2)
		if len(kv) != 2 {
			continue
		}
		out[kv[0]] = kv[1]
	}
	return out
}

// timeWindow resolves start_time/end_time query params, defaulting to the
// last 30 days per spec.md §6.
func timeWindow(r *http.Request) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	start := end.Add(-30 * 24 * time.Hour)

	if v := r.URL.Query().Get("start_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = t
	}
	if v := r.URL.Query().Get("end_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = t
	}
	return start, end, nil
}

func searchQuery(name string, dims map[string]string, start, end time.Time) map[string]any {
	must := []map[string]any{
		{"range": map[string]any{"timestamp": map[string]any{"gte": start.Unix(), "lte": end.Unix()}}},
	}
	if name != "" {
		must = append(must, map[string]any{"match": map[string]any{"name": name}})
	}
	keys := make([]string, 0, len(dims))
	for k := range dims {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		must = append(must, map[string]any{"match": map[string]any{"dimensions." + k: dims[k]}})
	}
	return map[string]any{"query": map[string]any{"bool": map[string]any{"must": must}}}
}

func fetchSamples(h *QueryHandler, r *http.Request, start, end time.Time) ([]model.Sample, error) {
	name := r.URL.Query().Get("name")
	dims := parseDimensions(r.URL.Query().Get("dimensions"))

	res, err := h.Store.Search(r.Context(), metricsDocType, searchQuery(name, dims, start, end))
	if err != nil {
		return nil, err
	}

	samples := make([]model.Sample, 0, len(res.Hits))
	for _, hit := range res.Hits {
		var s model.Sample
		if err := remarshalHit(hit.Source, &s); err != nil {
			continue
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func remarshalHit(src map[string]any, dst *model.Sample) error {
	name, _ := src["name"].(string)
	value, _ := src["value"].(float64)
	ts, _ := src["timestamp"].(float64)
	dims := map[string]string{}
	if raw, ok := src["dimensions"].(map[string]any); ok {
		for k, v := range raw {
			if s, ok := v.(string); ok {
				dims[k] = s
			}
		}
	}
	*dst = model.Sample{Name: name, Value: value, Timestamp: ts, Dimensions: dims}
	return nil
}

// dimKey joins a sample's dimensions into a stable grouping key.
func dimKey(dims map[string]string) string {
	keys := make([]string, 0, len(dims))
	for k := range dims {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(dims[k])
		b.WriteByte(',')
	}
	return b.String()
}

// ListMetrics handles GET /v2.0/metrics: unique (name, dimensions) pairs.
func (h *QueryHandler) ListMetrics(w http.ResponseWriter, r *http.Request) {
	start, end, err := timeWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time/end_time: "+err.Error())
		return
	}
	samples, err := fetchSamples(h, r, start, end)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	seen := map[string]bool{}
	type entry struct {
		Name       string            `json:"name"`
		Dimensions map[string]string `json:"dimensions"`
	}
	var out []entry
	for _, s := range samples {
		key := s.Name + "\x00" + dimKey(s.Dimensions)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, entry{Name: s.Name, Dimensions: s.Dimensions})
	}
	if out == nil {
		out = []entry{}
	}
	writeJSON(w, http.StatusOK, out)
}

// Measurements handles GET /v2.0/metrics/measurements: raw samples grouped
// by (name, dimensions).
func (h *QueryHandler) Measurements(w http.ResponseWriter, r *http.Request) {
	start, end, err := timeWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time/end_time: "+err.Error())
		return
	}
	samples, err := fetchSamples(h, r, start, end)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	type group struct {
		Name         string            `json:"name"`
		Dimensions   map[string]string `json:"dimensions"`
		Columns      []string          `json:"columns"`
		Measurements [][3]any          `json:"measurements"`
	}
	groups := map[string]*group{}
	var order []string
	for i, s := range samples {
		key := s.Name + "\x00" + dimKey(s.Dimensions)
		g, ok := groups[key]
		if !ok {
			g = &group{Name: s.Name, Dimensions: s.Dimensions, Columns: []string{"id", "timestamp", "value"}}
			groups[key] = g
			order = append(order, key)
		}
		g.Measurements = append(g.Measurements, [3]any{strconv.Itoa(i), s.Timestamp, s.Value})
	}

	out := make([]*group, 0, len(order))
	for _, key := range order {
		out = append(out, groups[key])
	}
	writeJSON(w, http.StatusOK, out)
}

var allStatistics = []string{"avg", "count", "max", "min", "sum"}

// Statistics handles GET /v2.0/metrics/statistics: time-bucketed aggregation
// over {avg,count,max,min,sum}.
func (h *QueryHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	start, end, err := timeWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time/end_time: "+err.Error())
		return
	}
	samples, err := fetchSamples(h, r, start, end)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	period := 300
	if v := r.URL.Query().Get("period"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			period = p
		}
	}

	stats := allStatistics
	if v := r.URL.Query().Get("statistics"); v != "" {
		requested := strings.Split(v, ",")
		stats = requested
	}

	type group struct {
		Name       string            `json:"name"`
		Dimensions map[string]string `json:"dimensions"`
		Columns    []string          `json:"columns"`
		Statistics [][]any           `json:"statistics"`
	}
	byKey := map[string]*group{}
	bucketsByKey := map[string]map[int64][]float64{}
	var order []string

	for _, s := range samples {
		key := s.Name + "\x00" + dimKey(s.Dimensions)
		g, ok := byKey[key]
		if !ok {
			cols := append([]string{"timestamp"}, stats...)
			g = &group{Name: s.Name, Dimensions: s.Dimensions, Columns: cols}
			byKey[key] = g
			bucketsByKey[key] = map[int64][]float64{}
			order = append(order, key)
		}
		bucket := int64(s.Timestamp) / int64(period) * int64(period)
		bucketsByKey[key][bucket] = append(bucketsByKey[key][bucket], s.Value)
	}

	for _, key := range order {
		g := byKey[key]
		buckets := bucketsByKey[key]
		ts := make([]int64, 0, len(buckets))
		for t := range buckets {
			ts = append(ts, t)
		}
		sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
		for _, t := range ts {
			values := buckets[t]
			row := []any{t}
			for _, stat := range stats {
				row = append(row, alarmexpr.Aggregate(strings.ToUpper(stat), values))
			}
			g.Statistics = append(g.Statistics, row)
		}
	}

	out := make([]*group, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	writeJSON(w, http.StatusOK, out)
}
