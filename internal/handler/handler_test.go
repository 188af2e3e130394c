package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/vrpulse/jerk-sentinel/internal/domain"
	"github.com/vrpulse/jerk-sentinel/internal/monitor"
	"github.com/vrpulse/jerk-sentinel/internal/service"
	"github.com/vrpulse/jerk-sentinel/internal/storage"
)

// --- mock repo (same logic as service tests, implements storage.Repository) ---

type mockRepo struct {
	mu      sync.Mutex
	runs    map[string]*domain.DetectionRun
	windows map[string][]domain.LabeledWindow
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		runs:    make(map[string]*domain.DetectionRun),
		windows: make(map[string][]domain.LabeledWindow),
	}
}

func (m *mockRepo) CreateRun(_ context.Context, run domain.DetectionRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := run
	m.runs[run.ID] = &cp
	return nil
}

func (m *mockRepo) CompleteRun(_ context.Context, id string, windowCount, anomalyCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return domain.ErrRunNotFound
	}
	now := time.Now()
	run.Status = domain.RunCompleted
	run.WindowCount = windowCount
	run.AnomalyCount = anomalyCount
	run.CompletedAt = &now
	return nil
}

func (m *mockRepo) FailRun(_ context.Context, id string, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return domain.ErrRunNotFound
	}
	now := time.Now()
	run.Status = domain.RunFailed
	run.Error = errMsg
	run.CompletedAt = &now
	return nil
}

func (m *mockRepo) GetRun(_ context.Context, id string) (*domain.DetectionRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	cp := *run
	return &cp, nil
}

func (m *mockRepo) ListRuns(_ context.Context, limit int) ([]domain.DetectionRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var runs []domain.DetectionRun
	for _, run := range m.runs {
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *mockRepo) SaveWindows(_ context.Context, runID string, windows []domain.LabeledWindow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows[runID] = append([]domain.LabeledWindow{}, windows...)
	return nil
}

func (m *mockRepo) GetWindows(_ context.Context, runID string, anomaliesOnly bool) ([]domain.LabeledWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.LabeledWindow
	for _, w := range m.windows[runID] {
		if anomaliesOnly && !w.IsAnomaly {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (m *mockRepo) DeleteRun(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[id]; !ok {
		return domain.ErrRunNotFound
	}
	delete(m.runs, id)
	delete(m.windows, id)
	return nil
}

// ensure mockRepo implements storage.Repository
var _ storage.Repository = (*mockRepo)(nil)

// --- helpers ---

func newDetectionHandler(repo storage.Repository) *DetectionHandler {
	cfg := domain.DefaultConfig()
	cfg.Seed = 42
	svc := service.NewDetectionService(repo, cfg, monitor.NewMetrics())
	return NewDetectionHandler(svc)
}

// spikeSamples builds 1001 samples over ten 1s windows with a jerk
// spike in window 5.
func spikeSamples() []domain.RawSample {
	var samples []domain.RawSample
	for i := 0; i < 1000; i++ {
		samples = append(samples, domain.RawSample{
			SessionID: "session-1",
			UserID:    "player-1",
			Time:      float64(i) / 100.0,
			Jerk:      1.0 + float64(i%7)*0.1,
		})
	}
	samples = append(samples, domain.RawSample{
		SessionID: "session-1",
		UserID:    "player-1",
		Time:      5.5,
		Jerk:      1000,
	})
	return samples
}

func floatPtr(v float64) *float64 { return &v }

func postJSON(handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func getRequest(handler http.HandlerFunc, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

// --- Detection handler tests ---

func TestCreateDetection_201(t *testing.T) {
	h := newDetectionHandler(newMockRepo())

	w := postJSON(h.Create, "/v1/detections", DetectRequest{
		Samples: spikeSamples(),
		Config:  &service.ConfigOverrides{Contamination: floatPtr(0.1)},
	})

	if w.Code != 201 {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var run domain.DetectionRun
	json.Unmarshal(w.Body.Bytes(), &run)
	if run.Status != domain.RunCompleted {
		t.Errorf("expected completed, got %s", run.Status)
	}
	if run.WindowCount != 10 {
		t.Errorf("expected 10 windows, got %d", run.WindowCount)
	}
	if run.AnomalyCount != 1 {
		t.Errorf("expected 1 anomaly, got %d", run.AnomalyCount)
	}
}

func TestCreateDetection_InvalidJSON_400(t *testing.T) {
	h := newDetectionHandler(newMockRepo())

	req := httptest.NewRequest(http.MethodPost, "/v1/detections", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != 400 {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCreateDetection_InvalidConfig_422(t *testing.T) {
	h := newDetectionHandler(newMockRepo())

	w := postJSON(h.Create, "/v1/detections", DetectRequest{
		Samples: spikeSamples(),
		Config:  &service.ConfigOverrides{Contamination: floatPtr(0.9)},
	})

	if w.Code != 422 {
		t.Errorf("expected 422, got %d", w.Code)
	}
}

func TestCreateDetection_InsufficientData_422(t *testing.T) {
	h := newDetectionHandler(newMockRepo())

	w := postJSON(h.Create, "/v1/detections", DetectRequest{
		Samples: []domain.RawSample{
			{SessionID: "s", UserID: "u", Time: 0.5, Jerk: 1},
		},
	})

	if w.Code != 422 {
		t.Errorf("expected 422, got %d", w.Code)
	}
}

func TestCreateDetection_MethodNotAllowed(t *testing.T) {
	h := newDetectionHandler(newMockRepo())

	req := httptest.NewRequest(http.MethodPut, "/v1/detections", nil)
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != 405 {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestListDetections_200(t *testing.T) {
	repo := newMockRepo()
	h := newDetectionHandler(repo)

	postJSON(h.Create, "/v1/detections", DetectRequest{
		Samples: spikeSamples(),
		Config:  &service.ConfigOverrides{Contamination: floatPtr(0.1)},
	})

	w := getRequest(h.List, "/v1/detections")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Runs []domain.DetectionRun `json:"runs"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Runs) != 1 {
		t.Errorf("expected 1 run, got %d", len(resp.Runs))
	}
}

func TestGetDetection_200(t *testing.T) {
	repo := newMockRepo()
	h := newDetectionHandler(repo)

	create := postJSON(h.Create, "/v1/detections", DetectRequest{
		Samples: spikeSamples(),
		Config:  &service.ConfigOverrides{Contamination: floatPtr(0.1)},
	})
	var created domain.DetectionRun
	json.Unmarshal(create.Body.Bytes(), &created)

	req := httptest.NewRequest(http.MethodGet, "/v1/detections/"+created.ID, nil)
	w := httptest.NewRecorder()
	h.Get(w, req, created.ID)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var run domain.DetectionRun
	json.Unmarshal(w.Body.Bytes(), &run)
	if run.ID != created.ID {
		t.Errorf("expected run %s, got %s", created.ID, run.ID)
	}
}

func TestGetDetection_NotFound_404(t *testing.T) {
	h := newDetectionHandler(newMockRepo())

	req := httptest.NewRequest(http.MethodGet, "/v1/detections/nope", nil)
	w := httptest.NewRecorder()
	h.Get(w, req, "nope")

	if w.Code != 404 {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestDeleteDetection_204(t *testing.T) {
	repo := newMockRepo()
	h := newDetectionHandler(repo)

	create := postJSON(h.Create, "/v1/detections", DetectRequest{
		Samples: spikeSamples(),
		Config:  &service.ConfigOverrides{Contamination: floatPtr(0.1)},
	})
	var created domain.DetectionRun
	json.Unmarshal(create.Body.Bytes(), &created)

	req := httptest.NewRequest(http.MethodDelete, "/v1/detections/"+created.ID, nil)
	w := httptest.NewRecorder()
	h.Delete(w, req, created.ID)

	if w.Code != 204 {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	get := httptest.NewRecorder()
	h.Get(get, httptest.NewRequest(http.MethodGet, "/v1/detections/"+created.ID, nil), created.ID)
	if get.Code != 404 {
		t.Errorf("expected 404 after delete, got %d", get.Code)
	}
}

func TestDeleteDetection_NotFound_404(t *testing.T) {
	h := newDetectionHandler(newMockRepo())

	req := httptest.NewRequest(http.MethodDelete, "/v1/detections/nope", nil)
	w := httptest.NewRecorder()
	h.Delete(w, req, "nope")

	if w.Code != 404 {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestGetWindows_AnomaliesOnly(t *testing.T) {
	repo := newMockRepo()
	h := newDetectionHandler(repo)

	create := postJSON(h.Create, "/v1/detections", DetectRequest{
		Samples: spikeSamples(),
		Config:  &service.ConfigOverrides{Contamination: floatPtr(0.1)},
	})
	var created domain.DetectionRun
	json.Unmarshal(create.Body.Bytes(), &created)

	req := httptest.NewRequest(http.MethodGet, "/v1/detections/"+created.ID+"/windows?anomalies=true", nil)
	w := httptest.NewRecorder()
	h.Windows(w, req, created.ID)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Windows []domain.LabeledWindow `json:"windows"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Windows) != 1 {
		t.Fatalf("expected 1 anomalous window, got %d", len(resp.Windows))
	}
	if resp.Windows[0].WindowIndex != 5 {
		t.Errorf("expected anomaly in window 5, got %d", resp.Windows[0].WindowIndex)
	}
}

func TestGetWindows_NotFound_404(t *testing.T) {
	h := newDetectionHandler(newMockRepo())

	req := httptest.NewRequest(http.MethodGet, "/v1/detections/nope/windows", nil)
	w := httptest.NewRecorder()
	h.Windows(w, req, "nope")

	if w.Code != 404 {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// --- Reporting handler tests ---

func TestSummary_200(t *testing.T) {
	repo := newMockRepo()
	dh := newDetectionHandler(repo)

	create := postJSON(dh.Create, "/v1/detections", DetectRequest{
		Samples: spikeSamples(),
		Config:  &service.ConfigOverrides{Contamination: floatPtr(0.1)},
	})
	var created domain.DetectionRun
	json.Unmarshal(create.Body.Bytes(), &created)

	rh := NewReportingHandler(service.NewReportingService(repo, nil))
	req := httptest.NewRequest(http.MethodGet, "/v1/detections/"+created.ID+"/summary", nil)
	w := httptest.NewRecorder()
	rh.Summary(w, req, created.ID)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var summary domain.RunSummary
	json.Unmarshal(w.Body.Bytes(), &summary)
	if summary.RunID != created.ID {
		t.Errorf("expected run ID %s, got %s", created.ID, summary.RunID)
	}
	if summary.TotalWindows != 10 {
		t.Errorf("expected 10 windows, got %d", summary.TotalWindows)
	}
	if summary.AnomalousWindows != 1 {
		t.Errorf("expected 1 anomalous window, got %d", summary.AnomalousWindows)
	}
}

func TestSummary_NotFound_404(t *testing.T) {
	rh := NewReportingHandler(service.NewReportingService(newMockRepo(), nil))

	req := httptest.NewRequest(http.MethodGet, "/v1/detections/nope/summary", nil)
	w := httptest.NewRecorder()
	rh.Summary(w, req, "nope")

	if w.Code != 404 {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// --- Health handler tests ---

type mockPinger struct{ err error }

func (p mockPinger) Ping() error { return p.err }

func TestHealth_Healthy(t *testing.T) {
	h := NewHealthHandler(mockPinger{}, monitor.NewMetrics())

	w := getRequest(h.Health, "/health")
	if w.Code != 200 {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestHealth_Unhealthy_503(t *testing.T) {
	h := NewHealthHandler(mockPinger{err: context.DeadlineExceeded}, monitor.NewMetrics())

	w := getRequest(h.Health, "/health")
	if w.Code != 503 {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := monitor.NewMetrics()
	metrics.RecordRun(10, 1)
	h := NewHealthHandler(mockPinger{}, metrics)

	w := getRequest(h.Metrics, "/v1/metrics")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var snap monitor.MetricsSnapshot
	json.Unmarshal(w.Body.Bytes(), &snap)
	if snap.RunsCompleted != 1 {
		t.Errorf("expected 1 completed run, got %d", snap.RunsCompleted)
	}
}
