package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Batch item states.
const (
	ItemDone   = "done"
	ItemFailed = "failed"
)

// BatchJob is a roster run that can be resumed.
type BatchJob struct {
	ID        string
	InputFile string
	OutputDir string
	Status    string
	CreatedAt time.Time
}

// BatchItem is the outcome of one roster row.
type BatchItem struct {
	Row      int
	ReportID string
	Status   string
	Error    string
}

// CreateBatchJob records a new job and returns its ID.
func (s *Store) CreateBatchJob(ctx context.Context, inputFile, outputDir string) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batch_jobs (id, input_file, output_dir, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, inputFile, outputDir, now, now)
	return id, err
}

func (s *Store) GetBatchJob(ctx context.Context, id string) (*BatchJob, error) {
	var job BatchJob
	err := s.db.QueryRowContext(ctx,
		`SELECT id, input_file, output_dir, status, created_at FROM batch_jobs WHERE id = ?`,
		id).Scan(&job.ID, &job.InputFile, &job.OutputDir, &job.Status, &job.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("batch job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// SaveBatchItem records the outcome of a row, replacing an earlier attempt.
func (s *Store) SaveBatchItem(ctx context.Context, jobID string, item BatchItem) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO batch_items (job_id, row_idx, report_id, status, error, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		jobID, item.Row, item.ReportID, item.Status, item.Error, time.Now().UTC())
	return err
}

// ListBatchItems returns the recorded rows of a job keyed by row index.
func (s *Store) ListBatchItems(ctx context.Context, jobID string) (map[int]BatchItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT row_idx, COALESCE(report_id, ''), status, COALESCE(error, '') FROM batch_items WHERE job_id = ?`,
		jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[int]BatchItem)
	for rows.Next() {
		var it BatchItem
		if err := rows.Scan(&it.Row, &it.ReportID, &it.Status, &it.Error); err != nil {
			return nil, err
		}
		items[it.Row] = it
	}
	return items, rows.Err()
}

// CompleteBatchJob marks a job as completed.
func (s *Store) CompleteBatchJob(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE batch_jobs SET status = 'completed', updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, "batch job", id)
}
