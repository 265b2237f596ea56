// Package store defines the document-store contract (spec.md §6 "Store
// contract") and the time-sharded index-naming strategy (spec.md §6 "Index
// naming"). internal/store/httpstore implements Client against a real HTTP
// document-store.
package store

import (
	"context"

	"github.com/wardenhq/warden/internal/model"
)

// Client is the document-store contract every subsystem depends on:
// upsert/replace/delete by id, a filtered search, and the startup
// index-template install.
type Client interface {
	Upsert(ctx context.Context, index, docType, id string, doc any) error
	Replace(ctx context.Context, index, docType, id string, doc any) error
	Delete(ctx context.Context, docType, id string) error
	Search(ctx context.Context, docType string, query map[string]any) (SearchResult, error)
	EnsureTemplate(ctx context.Context) error

	ListAlarmDefinitions(ctx context.Context, nameFilter string, dimensionFilter map[string]string) ([]model.AlarmDefinition, error)
	GetAlarmDefinition(ctx context.Context, id string) (model.AlarmDefinition, error)
	PutAlarmDefinition(ctx context.Context, def model.AlarmDefinition) error
	DeleteAlarmDefinition(ctx context.Context, id string) error

	GetNotificationMethod(ctx context.Context, id string) (model.NotificationMethod, error)
	ListNotificationMethods(ctx context.Context) ([]model.NotificationMethod, error)
	PutNotificationMethod(ctx context.Context, m model.NotificationMethod) error
	DeleteNotificationMethod(ctx context.Context, id string) error
}

// SearchResult is the store's `{hits:{hits:[...]}, aggregations}` response
// (spec.md §6) with the nested hits.hits array flattened into Hits.
type SearchResult struct {
	Hits         []Hit          `json:"hits_flat"`
	Aggregations map[string]any `json:"aggregations,omitempty"`
}

// Hit is one matched document.
type Hit struct {
	ID     string         `json:"id"`
	Source map[string]any `json:"source"`
}

// NotFound is returned by single-document lookups that miss.
type NotFound struct {
	DocType string
	ID      string
}

func (e *NotFound) Error() string {
	return "store: " + e.DocType + " " + e.ID + " not found"
}
