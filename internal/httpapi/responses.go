package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wardenhq/warden/internal/store"
	"github.com/wardenhq/warden/internal/validate"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError translates a store-layer error into the status codes
// spec.md §7 assigns: NotFound -> 404, everything else -> 503
// (UpstreamUnavailable), since the store is the only thing these handlers
// call that can fail for reasons outside the caller's control.
func writeStoreError(w http.ResponseWriter, err error) {
	var notFound *store.NotFound
	if errors.As(err, &notFound) {
		writeError(w, http.StatusNotFound, notFound.Error())
		return
	}
	writeError(w, http.StatusServiceUnavailable, "store unavailable")
}

// writeValidationError translates an ingress validation error into 400,
// falling back to 400 for any other decode failure per spec.md §7's
// "default to 400" propagation policy.
func writeValidationError(w http.ResponseWriter, err error) {
	var invalid *validate.InvalidInput
	if errors.As(err, &invalid) {
		writeError(w, http.StatusBadRequest, invalid.Error())
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

// HealthCheck reports liveness/readiness.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
