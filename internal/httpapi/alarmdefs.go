package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wardenhq/warden/internal/alarmexpr"
	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/store"
)

// AlarmDefHandler implements the alarm-definitions CRUD (spec.md §6).
type AlarmDefHandler struct {
	Store store.Client
}

func (h *AlarmDefHandler) List(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	defs, err := h.Store.ListAlarmDefinitions(r.Context(), name, nil)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if defs == nil {
		defs = []model.AlarmDefinition{}
	}
	writeJSON(w, http.StatusOK, defs)
}

func (h *AlarmDefHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	def, err := h.Store.GetAlarmDefinition(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// alarmDefRequest is the CRUD payload shape for alarm-definition create/update.
type alarmDefRequest struct {
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	Expression          string   `json:"expression"`
	MatchBy             []string `json:"match_by"`
	Severity            string   `json:"severity"`
	AlarmActions        []string `json:"alarm_actions"`
	OKActions           []string `json:"ok_actions"`
	UndeterminedActions []string `json:"undetermined_actions"`
}

func buildDefinition(id string, req alarmDefRequest) (model.AlarmDefinition, error) {
	tree, err := alarmexpr.Parse(req.Expression)
	if err != nil {
		return model.AlarmDefinition{}, err
	}
	leaves := tree.Leaves()
	data := make([]model.SubAlarmDescriptor, len(leaves))
	for i, l := range leaves {
		data[i] = *l
	}
	return model.AlarmDefinition{
		ID:                  id,
		Name:                req.Name,
		Description:         req.Description,
		Expression:          req.Expression,
		MatchBy:             filterEmpty(req.MatchBy),
		Severity:            model.NormalizeSeverity(req.Severity),
		AlarmActions:        req.AlarmActions,
		OKActions:           req.OKActions,
		UndeterminedActions: req.UndeterminedActions,
		ExpressionData:      data,
	}, nil
}

func filterEmpty(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

func (h *AlarmDefHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req alarmDefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Name == "" || req.Expression == "" {
		writeError(w, http.StatusBadRequest, "name and expression are required")
		return
	}

	def, err := buildDefinition(uuid.NewString(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Store.PutAlarmDefinition(r.Context(), def); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, def)
}

// Update implements PUT /v2.0/alarm-definitions/{id}, enforcing spec.md
// §4.3's structural invariant: the new expression must keep the same number
// of sub-expressions, the same normalized metric name and dimensions per
// positional sub-expression, and match_by unchanged.
func (h *AlarmDefHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.Store.GetAlarmDefinition(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var req alarmDefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	updated, err := buildDefinition(id, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := validateUpdateRule(existing, updated); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Store.PutAlarmDefinition(r.Context(), updated); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func validateUpdateRule(existing, updated model.AlarmDefinition) error {
	if len(existing.ExpressionData) != len(updated.ExpressionData) {
		return &updateRuleError{"number of sub-expressions changed"}
	}
	for i := range existing.ExpressionData {
		oldLeaf, newLeaf := existing.ExpressionData[i], updated.ExpressionData[i]
		if !strings.EqualFold(oldLeaf.MetricName, newLeaf.MetricName) {
			return &updateRuleError{"sub-expression metric name changed"}
		}
		if !sameDimensions(oldLeaf.Dimensions, newLeaf.Dimensions) {
			return &updateRuleError{"sub-expression dimensions changed"}
		}
	}
	if !sameMatchBy(existing.MatchBy, updated.MatchBy) {
		return &updateRuleError{"match_by changed"}
	}
	return nil
}

type updateRuleError struct{ reason string }

func (e *updateRuleError) Error() string { return "alarm-definition update rule violated: " + e.reason }

func sameDimensions(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if !strings.EqualFold(b[k], v) {
			return false
		}
	}
	return true
}

func sameMatchBy(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (h *AlarmDefHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteAlarmDefinition(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "alarm definition deleted", "id": id})
}
