package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// VersionsHandler implements the API-versions view (spec.md §6
// "GET / -> version list; GET /{version_id} -> one entry or 501").
type VersionsHandler struct{}

type versionLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type versionEntry struct {
	ID      string        `json:"id"`
	Links   []versionLink `json:"links"`
	Status  string        `json:"status"`
	Updated string        `json:"updated"`
}

var currentVersion = versionEntry{
	ID:      "v2.0",
	Links:   []versionLink{{Rel: "self", Href: "/v2.0"}},
	Status:  "CURRENT",
	Updated: time.Date(2013, time.July, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
}

// List handles GET /.
func (h *VersionsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []versionEntry{currentVersion})
}

// Get handles GET /{version_id}.
func (h *VersionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "versionID")
	if id != currentVersion.ID {
		writeError(w, http.StatusNotImplemented, "unknown version "+id)
		return
	}
	writeJSON(w, http.StatusOK, currentVersion)
}
