package handler

import (
	"net/http"

	"github.com/vrpulse/jerk-sentinel/internal/service"
)

// ReportingHandler serves run summaries.
type ReportingHandler struct {
	svc *service.ReportingService
}

// NewReportingHandler creates a new ReportingHandler.
func NewReportingHandler(svc *service.ReportingService) *ReportingHandler {
	return &ReportingHandler{svc: svc}
}

// Summary handles GET /v1/detections/{id}/summary
func (h *ReportingHandler) Summary(w http.ResponseWriter, r *http.Request, id string) {
	summary, err := h.svc.Summary(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
