package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/wardenhq/warden/internal/bus"
	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/obsmetrics"
	"github.com/wardenhq/warden/internal/validate"
)

// IngressHandler implements the metrics/meters ingress (spec.md §6 "Ingress
// HTTP"): validate, augment from headers, wrap in the envelope the bus
// expects, and fan each sample out onto the metrics topic.
type IngressHandler struct {
	Producer bus.Producer
	Metrics  *obsmetrics.Metrics
}

// Metrics handles POST /v2.0/metrics.
func (h *IngressHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, validate.ParseMetrics)
}

// Meters handles POST /v2.0/meters (Ceilometer compatibility).
func (h *IngressHandler) Meters(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, validate.ParseMeters)
}

func (h *IngressHandler) ingest(w http.ResponseWriter, r *http.Request, parse func([]byte) ([]model.Sample, error)) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	samples, err := parse(body)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	tenantID := r.Header.Get("X-Project-Id")
	now := float64(time.Now().Unix())

	for i := range samples {
		validate.KeystoneAugment(&samples[i], r.Header)

		payload, err := json.Marshal(model.MetricEnvelope{
			Metric:       samples[i],
			Meta:         model.MetricEnvelopeMeta{TenantID: tenantID},
			CreationTime: now,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "encode envelope: "+err.Error())
			return
		}

		if err := h.Producer.Send(r.Context(), "metrics", payload); err != nil {
			if h.Metrics != nil {
				h.Metrics.BusSendsTotal.WithLabelValues("metrics", "error").Inc()
			}
			writeError(w, http.StatusServiceUnavailable, "bus unavailable: "+err.Error())
			return
		}
		if h.Metrics != nil {
			h.Metrics.BusSendsTotal.WithLabelValues("metrics", "ok").Inc()
			h.Metrics.SamplesIngested.Inc()
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
