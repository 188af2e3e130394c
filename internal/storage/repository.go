package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/vrpulse/jerk-sentinel/internal/domain"
)

// Repository defines the interface for detection run persistence.
type Repository interface {
	// CreateRun inserts a new run in the running state.
	CreateRun(ctx context.Context, run domain.DetectionRun) error

	// CompleteRun marks a run finished with its final counts.
	CompleteRun(ctx context.Context, id string, windowCount, anomalyCount int) error

	// FailRun marks a run failed with its error message.
	FailRun(ctx context.Context, id string, errMsg string) error

	// GetRun retrieves one run by ID.
	GetRun(ctx context.Context, id string) (*domain.DetectionRun, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]domain.DetectionRun, error)

	// SaveWindows bulk-inserts a run's labeled windows.
	SaveWindows(ctx context.Context, runID string, windows []domain.LabeledWindow) error

	// GetWindows returns a run's windows in (session, user, window) order,
	// optionally restricted to anomalies.
	GetWindows(ctx context.Context, runID string, anomaliesOnly bool) ([]domain.LabeledWindow, error)

	// DeleteRun removes a run and its windows.
	DeleteRun(ctx context.Context, id string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateRun(ctx context.Context, run domain.DetectionRun) error {
	cfg, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO detection_runs (id, config, status, sample_count, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`, run.ID, cfg, string(run.Status), run.SampleCount, run.StartedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CompleteRun(ctx context.Context, id string, windowCount, anomalyCount int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE detection_runs
		SET status = 'completed', window_count = $1, anomaly_count = $2, completed_at = NOW()
		WHERE id = $3
	`, windowCount, anomalyCount, id)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) FailRun(ctx context.Context, id string, errMsg string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE detection_runs SET status = 'failed', error = $1, completed_at = NOW()
		WHERE id = $2
	`, errMsg, id)
	if err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *PostgresRepository) GetRun(ctx context.Context, id string) (*domain.DetectionRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, config, status, sample_count, window_count, anomaly_count, error, started_at, completed_at
		FROM detection_runs WHERE id = $1
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

func (r *PostgresRepository) ListRuns(ctx context.Context, limit int) ([]domain.DetectionRun, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, config, status, sample_count, window_count, anomaly_count, error, started_at, completed_at
		FROM detection_runs ORDER BY started_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.DetectionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*domain.DetectionRun, error) {
	var run domain.DetectionRun
	var cfg []byte
	var status string
	var completedAt sql.NullTime

	err := row.Scan(
		&run.ID, &cfg, &status, &run.SampleCount,
		&run.WindowCount, &run.AnomalyCount, &run.Error,
		&run.StartedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cfg, &run.Config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	run.Status = domain.RunStatus(status)
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return &run, nil
}

// SaveWindows streams the windows through COPY inside one transaction.
func (r *PostgresRepository) SaveWindows(ctx context.Context, runID string, windows []domain.LabeledWindow) error {
	if len(windows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("labeled_windows",
		"run_id", "session_id", "user_id", "window_index", "max_jerk", "score", "is_anomaly"))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}

	for _, w := range windows {
		if _, err := stmt.ExecContext(ctx, runID, w.SessionID, w.UserID, w.WindowIndex, w.MaxJerk, w.Score, w.IsAnomaly); err != nil {
			stmt.Close()
			return fmt.Errorf("copy window: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetWindows(ctx context.Context, runID string, anomaliesOnly bool) ([]domain.LabeledWindow, error) {
	query := `
		SELECT session_id, user_id, window_index, max_jerk, score, is_anomaly
		FROM labeled_windows WHERE run_id = $1`
	if anomaliesOnly {
		query += " AND is_anomaly"
	}
	query += " ORDER BY session_id, user_id, window_index"

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get windows: %w", err)
	}
	defer rows.Close()

	var windows []domain.LabeledWindow
	for rows.Next() {
		var w domain.LabeledWindow
		if err := rows.Scan(&w.SessionID, &w.UserID, &w.WindowIndex, &w.MaxJerk, &w.Score, &w.IsAnomaly); err != nil {
			return nil, fmt.Errorf("scan window: %w", err)
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

func (r *PostgresRepository) DeleteRun(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM detection_runs WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return requireRow(res)
}
