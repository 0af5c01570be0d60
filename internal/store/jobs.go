package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"flowstitch/internal/logging"
)

// =============================================================================
// JOB STATUS
// =============================================================================

// Job statuses written by the orchestrator.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobDegraded  = "degraded"
	JobFailed    = "failed"
)

// Job is one reconstruction request's status row.
type Job struct {
	ID              string
	Status          string
	CoverageSummary string
	PackagePath     string
	Message         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateJob inserts a new pending job.
func (s *FlowStore) CreateJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO jobs (id, status) VALUES (?, ?)`, id, JobPending)
	if err != nil {
		return fmt.Errorf("failed to create job %q: %w", id, err)
	}
	logging.StoreDebug("Job %s created", id)
	return nil
}

// UpdateJob writes the status triple the orchestrator reports on completion.
func (s *FlowStore) UpdateJob(id, status, coverageSummary, packagePath, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE jobs SET status = ?, coverage_summary = ?, package_path = ?, message = ?,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, coverageSummary, packagePath, message, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update job %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %q not found", id)
	}
	logging.StoreDebug("Job %s -> %s", id, status)
	return nil
}

// GetJob fetches one job row.
func (s *FlowStore) GetJob(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var j Job
	err := s.db.QueryRow(
		`SELECT id, status, coverage_summary, package_path, message, created_at, updated_at
		 FROM jobs WHERE id = ?`, id,
	).Scan(&j.ID, &j.Status, &j.CoverageSummary, &j.PackagePath, &j.Message, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %q: %w", id, err)
	}
	return &j, nil
}

// ListJobs returns the most recent jobs, newest first.
func (s *FlowStore) ListJobs(limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, status, coverage_summary, package_path, message, created_at, updated_at
		 FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.Status, &j.CoverageSummary, &j.PackagePath,
			&j.Message, &j.CreatedAt, &j.UpdatedAt); err != nil {
			continue
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
