package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/vrpulse/jerk-sentinel/internal/domain"
	"github.com/vrpulse/jerk-sentinel/internal/service"
)

// DetectRequest is the body of POST /v1/detections.
type DetectRequest struct {
	Samples []domain.RawSample       `json:"samples"`
	Config  *service.ConfigOverrides `json:"config,omitempty"`
}

// DetectionHandler handles detection run endpoints.
type DetectionHandler struct {
	svc *service.DetectionService
}

// NewDetectionHandler creates a new DetectionHandler.
func NewDetectionHandler(svc *service.DetectionService) *DetectionHandler {
	return &DetectionHandler{svc: svc}
}

// Create handles POST /v1/detections
func (h *DetectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req DetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	run, _, err := h.svc.Run(r.Context(), req.Samples, req.Config)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

// List handles GET /v1/detections
func (h *DetectionHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	runs, err := h.svc.ListRuns(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// Get handles GET /v1/detections/{id}
func (h *DetectionHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	run, err := h.svc.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// Delete handles DELETE /v1/detections/{id}
func (h *DetectionHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.svc.DeleteRun(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Windows handles GET /v1/detections/{id}/windows
func (h *DetectionHandler) Windows(w http.ResponseWriter, r *http.Request, id string) {
	anomaliesOnly := r.URL.Query().Get("anomalies") == "true"
	windows, err := h.svc.GetWindows(r.Context(), id, anomaliesOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"windows": windows})
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidConfig), errors.Is(err, domain.ErrInsufficientData):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrRunNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
