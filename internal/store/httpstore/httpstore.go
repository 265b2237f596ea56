// Package httpstore implements store.Client against an HTTP document-store
// (the "search/index service" spec.md §1 treats as an external
// collaborator). There is no ecosystem HTTP search-client library anywhere
// in the retrieval pack (see DESIGN.md "internal/store,
// internal/store/httpstore"), so this is a genuine net/http + encoding/json client,
// shaped like the teacher's stub clients in internal/clickhouse/client.go
// and internal/prometheus/client.go — but implemented fully, since the
// store is on the hot path rather than optional.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/store"
)

// Config configures a Client.
type Config struct {
	URI            string // base URI, e.g. https://store.internal:9200
	IndexPrefix    string
	AlarmDefDoc    string // doc_type for alarm definitions, default "alarm_definitions"
	NotifMethodDoc string // doc_type for notification methods, default "notification_methods"
	Timeout        time.Duration
}

// Client implements store.Client over net/http.
type Client struct {
	cfg        Config
	httpClient *http.Client
	strategy   store.Strategy
}

// New builds a Client. strategy selects the index-naming scheme used for
// writes that need a time-sharded index (spec.md §6).
func New(cfg Config, strategy store.Strategy) *Client {
	if cfg.AlarmDefDoc == "" {
		cfg.AlarmDefDoc = "alarm_definitions"
	}
	if cfg.NotifMethodDoc == "" {
		cfg.NotifMethodDoc = "notification_methods"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:      cfg,
		strategy: strategy,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
			},
		},
	}
}

func (c *Client) url(parts ...string) string {
	return c.cfg.URI + c.cfg.IndexPrefix + strings.Join(parts, "/")
}

func (c *Client) do(ctx context.Context, method, rawURL string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("httpstore: encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("httpstore: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpstore: %s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpstore: read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return &store.NotFound{DocType: rawURL, ID: ""}
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("httpstore: %s %s: status %d: %s", method, rawURL, resp.StatusCode, string(respBody))
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("httpstore: decode response: %w", err)
		}
	}
	return nil
}

// Upsert implements store.Client: POST {uri}{prefix}{index}/{doc_type}/{id}.
func (c *Client) Upsert(ctx context.Context, index, docType, id string, doc any) error {
	return c.do(ctx, http.MethodPost, c.url(index, docType, id), doc, nil)
}

// Replace implements store.Client: PUT {uri}{prefix}{index}/{doc_type}/{id}.
func (c *Client) Replace(ctx context.Context, index, docType, id string, doc any) error {
	return c.do(ctx, http.MethodPut, c.url(index, docType, id), doc, nil)
}

// Delete implements store.Client: DELETE {uri}{prefix}*/{doc_type}/{id}.
func (c *Client) Delete(ctx context.Context, docType, id string) error {
	return c.do(ctx, http.MethodDelete, c.url("*", docType, id), nil, nil)
}

// Search implements store.Client: POST {uri}{prefix}*/{doc_type}/_search.
func (c *Client) Search(ctx context.Context, docType string, query map[string]any) (store.SearchResult, error) {
	var raw struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
		Aggregations map[string]any `json:"aggregations"`
	}
	u := c.url("*", docType, "_search")
	if err := c.do(ctx, http.MethodPost, u, query, &raw); err != nil {
		return store.SearchResult{}, err
	}
	result := store.SearchResult{Aggregations: raw.Aggregations}
	for _, h := range raw.Hits.Hits {
		result.Hits = append(result.Hits, store.Hit{ID: h.ID, Source: h.Source})
	}
	return result, nil
}

// EnsureTemplate implements store.Client: PUT {uri}/_template/metrics,
// installed once at startup. Failure here is Fatal per spec.md §7.
func (c *Client) EnsureTemplate(ctx context.Context) error {
	template := map[string]any{
		"template": c.cfg.IndexPrefix + "*",
		"mappings": map[string]any{
			"_default_": map[string]any{
				"properties": map[string]any{
					"timestamp": map[string]any{"type": "date"},
				},
			},
		},
	}
	return c.do(ctx, http.MethodPut, c.cfg.URI+"/_template/metrics", template, nil)
}

// --- Alarm definitions ---

func (c *Client) alarmDefIndex() string { return c.strategy.IndexName(time.Now()) }

// ListAlarmDefinitions implements threshold.DefinitionSource and the
// query-surface CRUD's list path, per spec.md §4.4 step 1.
func (c *Client) ListAlarmDefinitions(ctx context.Context, nameFilter string, dimensionFilter map[string]string) ([]model.AlarmDefinition, error) {
	query := map[string]any{"query": map[string]any{"match_all": map[string]any{}}}
	if nameFilter != "" || len(dimensionFilter) > 0 {
		must := []map[string]any{}
		if nameFilter != "" {
			must = append(must, map[string]any{"match": map[string]any{"name": nameFilter}})
		}
		for k, v := range dimensionFilter {
			must = append(must, map[string]any{"match": map[string]any{"expression_data.dimensions." + k: v}})
		}
		query = map[string]any{"query": map[string]any{"bool": map[string]any{"must": must}}}
	}

	res, err := c.Search(ctx, c.cfg.AlarmDefDoc, query)
	if err != nil {
		return nil, err
	}
	defs := make([]model.AlarmDefinition, 0, len(res.Hits))
	for _, h := range res.Hits {
		var d model.AlarmDefinition
		if err := remarshal(h.Source, &d); err != nil {
			continue
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// GetAlarmDefinition fetches a single alarm definition by id.
func (c *Client) GetAlarmDefinition(ctx context.Context, id string) (model.AlarmDefinition, error) {
	res, err := c.Search(ctx, c.cfg.AlarmDefDoc, map[string]any{
		"query": map[string]any{"term": map[string]any{"id": id}},
	})
	if err != nil {
		return model.AlarmDefinition{}, err
	}
	if len(res.Hits) == 0 {
		return model.AlarmDefinition{}, &store.NotFound{DocType: c.cfg.AlarmDefDoc, ID: id}
	}
	var d model.AlarmDefinition
	if err := remarshal(res.Hits[0].Source, &d); err != nil {
		return model.AlarmDefinition{}, err
	}
	return d, nil
}

// PutAlarmDefinition upserts an alarm definition document.
func (c *Client) PutAlarmDefinition(ctx context.Context, def model.AlarmDefinition) error {
	return c.Upsert(ctx, c.alarmDefIndex(), c.cfg.AlarmDefDoc, def.ID, def)
}

// DeleteAlarmDefinition deletes an alarm definition document across shards.
func (c *Client) DeleteAlarmDefinition(ctx context.Context, id string) error {
	return c.Delete(ctx, c.cfg.AlarmDefDoc, id)
}

// --- Notification methods ---

// GetNotificationMethod fetches a single notification method by id.
func (c *Client) GetNotificationMethod(ctx context.Context, id string) (model.NotificationMethod, error) {
	res, err := c.Search(ctx, c.cfg.NotifMethodDoc, map[string]any{
		"query": map[string]any{"term": map[string]any{"id": id}},
	})
	if err != nil {
		return model.NotificationMethod{}, err
	}
	if len(res.Hits) == 0 {
		return model.NotificationMethod{}, &store.NotFound{DocType: c.cfg.NotifMethodDoc, ID: id}
	}
	var m model.NotificationMethod
	if err := remarshal(res.Hits[0].Source, &m); err != nil {
		return model.NotificationMethod{}, err
	}
	return m, nil
}

// ListNotificationMethods lists every notification-method document.
func (c *Client) ListNotificationMethods(ctx context.Context) ([]model.NotificationMethod, error) {
	res, err := c.Search(ctx, c.cfg.NotifMethodDoc, map[string]any{"query": map[string]any{"match_all": map[string]any{}}})
	if err != nil {
		return nil, err
	}
	methods := make([]model.NotificationMethod, 0, len(res.Hits))
	for _, h := range res.Hits {
		var m model.NotificationMethod
		if err := remarshal(h.Source, &m); err != nil {
			continue
		}
		methods = append(methods, m)
	}
	return methods, nil
}

// PutNotificationMethod upserts a notification-method document.
func (c *Client) PutNotificationMethod(ctx context.Context, m model.NotificationMethod) error {
	return c.Upsert(ctx, c.alarmDefIndex(), c.cfg.NotifMethodDoc, m.ID, m)
}

// DeleteNotificationMethod deletes a notification-method document.
func (c *Client) DeleteNotificationMethod(ctx context.Context, id string) error {
	return c.Delete(ctx, c.cfg.NotifMethodDoc, id)
}

func remarshal(src map[string]any, dst any) error {
	b, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
