package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/store"
)

const alarmsDocType = "alarms"

// AlarmHandler implements the read/update/delete views over alarm events
// (spec.md §6 "GET/PUT/DELETE /v2.0/alarms[/{id}]"): alarms are written by
// the Persister, never created through this API, so there is no Create.
type AlarmHandler struct {
	Store store.Client
}

func fetchAlarmEvents(h *AlarmHandler, r *http.Request) ([]model.AlarmEvent, error) {
	res, err := h.Store.Search(r.Context(), alarmsDocType, map[string]any{
		"query": map[string]any{"match_all": map[string]any{}},
	})
	if err != nil {
		return nil, err
	}
	events := make([]model.AlarmEvent, 0, len(res.Hits))
	for _, hit := range res.Hits {
		var e model.AlarmEvent
		b, err := json.Marshal(hit.Source)
		if err != nil {
			continue
		}
		if err := json.Unmarshal(b, &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

// latestPerDefinition groups alarm events by alarm_definition.name, keeping
// the one with the greatest updated_timestamp, per spec.md §6.
func latestPerDefinition(events []model.AlarmEvent) []model.AlarmEvent {
	latest := map[string]model.AlarmEvent{}
	for _, e := range events {
		key := e.AlarmDefinition.Name
		cur, ok := latest[key]
		if !ok || e.UpdatedTimestamp.After(cur.UpdatedTimestamp) {
			latest[key] = e
		}
	}
	out := make([]model.AlarmEvent, 0, len(latest))
	for _, e := range latest {
		out = append(out, e)
	}
	return out
}

// List handles GET /v2.0/alarms.
func (h *AlarmHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := fetchAlarmEvents(h, r)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, latestPerDefinition(events))
}

// Get handles GET /v2.0/alarms/{id}.
func (h *AlarmHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.Store.Search(r.Context(), alarmsDocType, map[string]any{
		"query": map[string]any{"term": map[string]any{"id": id}},
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if len(res.Hits) == 0 {
		writeStoreError(w, &store.NotFound{DocType: alarmsDocType, ID: id})
		return
	}
	var e model.AlarmEvent
	b, _ := json.Marshal(res.Hits[0].Source)
	if err := json.Unmarshal(b, &e); err != nil {
		writeError(w, http.StatusInternalServerError, "decode alarm: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// alarmUpdateRequest is the limited PUT payload: only state is mutable
// through this endpoint (an operator acknowledging or overriding an alarm).
type alarmUpdateRequest struct {
	State model.State `json:"state"`
}

// Update handles PUT /v2.0/alarms/{id}.
func (h *AlarmHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.Store.Search(r.Context(), alarmsDocType, map[string]any{
		"query": map[string]any{"term": map[string]any{"id": id}},
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if len(res.Hits) == 0 {
		writeStoreError(w, &store.NotFound{DocType: alarmsDocType, ID: id})
		return
	}
	var e model.AlarmEvent
	b, _ := json.Marshal(res.Hits[0].Source)
	if err := json.Unmarshal(b, &e); err != nil {
		writeError(w, http.StatusInternalServerError, "decode alarm: "+err.Error())
		return
	}

	var req alarmUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	switch req.State {
	case model.StateOK, model.StateAlarm, model.StateUndetermined:
	default:
		writeError(w, http.StatusBadRequest, "state must be one of OK, ALARM, UNDETERMINED")
		return
	}

	e.State = req.State
	e.UpdatedTimestamp = time.Now().UTC()

	if err := h.Store.Replace(r.Context(), "*", alarmsDocType, id, e); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Delete handles DELETE /v2.0/alarms/{id}.
func (h *AlarmHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.Delete(r.Context(), alarmsDocType, id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "alarm deleted", "id": id})
}
