package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/videoteka/videoteka/internal/domain"
)

// SaveJob upserts the job's persistent fields. The control handle and
// in-flight progress are runtime-only and deliberately not stored.
func (s *PersistentStore) SaveJob(job *domain.Job) error {

	optsJSON, err := json.Marshal(job.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}

	query := `INSERT OR REPLACE INTO jobs (id, url, title, status, options, position, output_path, error, added_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.Exec(query,
		job.ID,
		job.URL,
		job.Title,
		job.Status,
		optsJSON,
		job.Position,
		job.OutputPath,
		job.Error,
		job.AddedAt.Format(time.RFC3339),
	)
	return err
}

func (s *PersistentStore) DeleteJob(id string) error {
	_, err := s.db.Exec("DELETE FROM jobs WHERE id = ?", id)
	return err
}

// ActiveJobs returns every persisted non-terminal job ordered by queue
// position, then id (KSUIDs sort chronologically).
func (s *PersistentStore) ActiveJobs() ([]*domain.Job, error) {
	rows, err := s.db.Query(`
		SELECT id, url, title, status, options, position, output_path, error, added_at
		FROM jobs
		WHERE status NOT IN (?, ?, ?)
		ORDER BY position, id`,
		domain.StatusCompleted, domain.StatusFailed, domain.StatusCancelled,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job := &domain.Job{}
		var optsJSON, addedAt string

		err := rows.Scan(&job.ID, &job.URL, &job.Title, &job.Status, &optsJSON,
			&job.Position, &job.OutputPath, &job.Error, &addedAt)
		if err != nil {
			return nil, err
		}

		if err := json.Unmarshal([]byte(optsJSON), &job.Options); err != nil {
			// A corrupt row should not take down startup; skip it.
			continue
		}
		if ts, err := time.Parse(time.RFC3339, addedAt); err == nil {
			job.AddedAt = ts
		}

		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}
