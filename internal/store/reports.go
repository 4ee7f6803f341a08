package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/valpere/wordweaver/internal"
	"github.com/valpere/wordweaver/internal/report"
)

// SaveSubmission stores the student's text and metadata, assigning an ID
// when the submission has none.
func (s *Store) SaveSubmission(ctx context.Context, sub *internal.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.Timestamp.IsZero() {
		sub.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO submissions (id, student_name, school, dob, age, title, story, language, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Metadata.Name, sub.Metadata.School, sub.Metadata.DOB, sub.Metadata.Age,
		sub.Title, sub.Story, sub.Language, sub.Timestamp.UTC())
	return err
}

// GetSubmission loads a stored submission by ID.
func (s *Store) GetSubmission(ctx context.Context, id string) (*internal.Submission, error) {
	var sub internal.Submission
	err := s.db.QueryRowContext(ctx,
		`SELECT id, student_name, school, dob, age, title, story, language, created_at FROM submissions WHERE id = ?`,
		id).Scan(&sub.ID, &sub.Metadata.Name, &sub.Metadata.School, &sub.Metadata.DOB, &sub.Metadata.Age,
		&sub.Title, &sub.Story, &sub.Language, &sub.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ReportSubmission loads the submission a report was produced from.
// ErrNotFound covers both a missing report and one saved without a submission.
func (s *Store) ReportSubmission(ctx context.Context, reportID string) (*internal.Submission, error) {
	var subID sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT submission_id FROM reports WHERE id = ?`, reportID).Scan(&subID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %s: %w", reportID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !subID.Valid || subID.String == "" {
		return nil, fmt.Errorf("report %s has no submission: %w", reportID, ErrNotFound)
	}
	return s.GetSubmission(ctx, subID.String)
}

// SaveReport stores r as JSON linked to submissionID (which may be empty)
// and assigns r.ID when it is empty.
func (s *Store) SaveReport(ctx context.Context, submissionID string, r *report.Report) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	var subID any
	if submissionID != "" {
		subID = submissionID
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO reports (id, submission_id, student_name, school, overall, iterations, report_json, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, subID, r.StudentID.Name, r.StudentID.School, r.Scores.Overall, r.IterationCount, string(data), r.Timestamp.UTC())
	return err
}

// GetReport loads a full report by ID.
func (s *Store) GetReport(ctx context.Context, id string) (*report.Report, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT report_json FROM reports WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return decodeReport(id, data)
}

// ReportSummary is a row of the report listing.
type ReportSummary struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id,omitempty"`
	StudentName  string    `json:"student_name"`
	School       string    `json:"school"`
	Overall      float64   `json:"overall"`
	Iterations   int       `json:"iterations"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListReports returns report summaries, newest first. An empty student
// returns every student; limit <= 0 means no limit.
func (s *Store) ListReports(ctx context.Context, student string, limit int) ([]ReportSummary, error) {
	query := `SELECT id, COALESCE(submission_id, ''), student_name, COALESCE(school, ''), overall, iterations, created_at FROM reports`
	var args []interface{}
	if student != "" {
		query += ` WHERE student_name = ?`
		args = append(args, student)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReportSummary
	for rows.Next() {
		var r ReportSummary
		if err := rows.Scan(&r.ID, &r.SubmissionID, &r.StudentName, &r.School, &r.Overall, &r.Iterations, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecentReportsForStudent returns up to limit of the student's latest
// reports, newest first.
func (s *Store) RecentReportsForStudent(ctx context.Context, name string, limit int) ([]*report.Report, error) {
	if name == "" || limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, report_json FROM reports WHERE student_name = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*report.Report
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		r, err := decodeReport(id, data)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteReport removes a report by ID.
func (s *Store) DeleteReport(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, "report", id)
}

func decodeReport(id, data string) (*report.Report, error) {
	var r report.Report
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", id, err)
	}
	r.ID = id
	return &r, nil
}
