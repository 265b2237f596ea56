package httpapi

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/store"
)

// NotificationHandler implements the notification-methods CRUD (spec.md §6):
// type in {EMAIL, PAGEDUTY, WEBHOOK}, with a basic shape check on EMAIL
// addresses.
type NotificationHandler struct {
	Store store.Client
}

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type notificationRequest struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Address string `json:"address"`
}

func validateNotification(req notificationRequest) (model.NotificationType, error) {
	var t model.NotificationType
	switch req.Type {
	case string(model.NotificationEmail), string(model.NotificationPagerDuty), string(model.NotificationWebhook):
		t = model.NotificationType(req.Type)
	default:
		return "", &validationError{"type must be one of EMAIL, PAGEDUTY, WEBHOOK"}
	}
	if req.Name == "" {
		return "", &validationError{"name is required"}
	}
	if req.Address == "" {
		return "", &validationError{"address is required"}
	}
	if t == model.NotificationEmail && !emailShape.MatchString(req.Address) {
		return "", &validationError{"address is not a valid email"}
	}
	return t, nil
}

type validationError struct{ reason string }

func (e *validationError) Error() string { return e.reason }

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	methods, err := h.Store.ListNotificationMethods(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if methods == nil {
		methods = []model.NotificationMethod{}
	}
	writeJSON(w, http.StatusOK, methods)
}

func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := h.Store.GetNotificationMethod(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	t, err := validateNotification(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m := model.NotificationMethod{ID: uuid.NewString(), Name: req.Name, Type: t, Address: req.Address}
	if err := h.Store.PutNotificationMethod(r.Context(), m); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *NotificationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Store.GetNotificationMethod(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}

	var req notificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	t, err := validateNotification(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m := model.NotificationMethod{ID: id, Name: req.Name, Type: t, Address: req.Address}
	if err := h.Store.PutNotificationMethod(r.Context(), m); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteNotificationMethod(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "notification method deleted", "id": id})
}
