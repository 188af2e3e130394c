package service

import (
	"context"
	"log"

	"github.com/vrpulse/jerk-sentinel/internal/domain"
	"github.com/vrpulse/jerk-sentinel/internal/report"
	"github.com/vrpulse/jerk-sentinel/internal/storage"
)

const defaultTopN = 10

// SummaryCache is the optional Redis-backed summary store.
type SummaryCache interface {
	GetSummary(ctx context.Context, runID string) (*domain.RunSummary, error)
	SaveSummary(ctx context.Context, runID string, summary domain.RunSummary) error
}

// ReportingService builds run summaries, with an optional cache in
// front of the window store.
type ReportingService struct {
	repo  storage.Repository
	cache SummaryCache // may be nil
}

// NewReportingService creates a new ReportingService. cache may be nil
// to disable caching.
func NewReportingService(repo storage.Repository, cache SummaryCache) *ReportingService {
	return &ReportingService{repo: repo, cache: cache}
}

// Summary returns the reporting view of a run. Cache failures are
// logged and treated as misses.
func (s *ReportingService) Summary(ctx context.Context, runID string) (*domain.RunSummary, error) {
	if s.cache != nil {
		cached, err := s.cache.GetSummary(ctx, runID)
		if err != nil {
			log.Printf("WARNING: summary cache read for run %s: %v", runID, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	if _, err := s.repo.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	windows, err := s.repo.GetWindows(ctx, runID, false)
	if err != nil {
		return nil, err
	}

	summary := report.Summarize(windows, defaultTopN)
	summary.RunID = runID

	if s.cache != nil {
		if err := s.cache.SaveSummary(ctx, runID, summary); err != nil {
			log.Printf("WARNING: summary cache write for run %s: %v", runID, err)
		}
	}
	return &summary, nil
}
