package engine

import (
	"context"
	"errors"
	"math"
	"os"
	"time"

	"github.com/videoteka/videoteka/internal/domain"
	"github.com/videoteka/videoteka/internal/telemetry"
)

// runJob drives exactly one job's external fetch to a terminal or paused
// state. It is the only goroutine with mutation rights over the job while
// the job is downloading, and it gives them back through finalize.
func (m *QueueManager) runJob(ctx context.Context, job *domain.Job) {
	defer m.wg.Done()

	// onLine runs on the fetcher's reader goroutines; fetch.LineFunc
	// deliveries are serialized, which is what lets the tracker go unlocked.
	tracker := telemetry.NewTracker()
	onLine := func(line string) {
		if !tracker.Apply(line) {
			return
		}
		snap, ok := tracker.Snapshot()
		if !ok {
			return
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		// Once a stop is pending, trailing telemetry from the dying
		// process must not surface anymore.
		if job.Status != domain.StatusDownloading || job.PendingStop != "" {
			return
		}
		p := snap
		job.Progress = &p
		if dest := tracker.Destination(); dest != "" {
			job.OutputPath = dest
		}
		if tracker.Resumed() {
			job.Resumable = true
		}
		m.publishLocked(domain.Event{
			Type:     domain.EventProgressUpdated,
			JobID:    job.ID,
			Progress: &p,
		})
	}

	attempt := 0
	for {
		attempt++
		err := m.app.Fetcher.Download(ctx, job.URL, job.Options, onLine)

		// Pause/cancel wins over whatever the process reported while dying.
		if stop := m.pendingStop(job); stop != "" {
			m.finalize(job, stop, "")
			return
		}
		if ctx.Err() != nil {
			// Parent shutdown without an explicit command; treat like pause
			// so the job is retried on the next start.
			m.finalize(job, domain.StatusPaused, "")
			return
		}

		if err == nil {
			m.finalize(job, domain.StatusCompleted, "")
			return
		}

		if errors.Is(err, domain.ErrTransientFetch) && attempt < m.maxAttempts {
			// Backoff: 2s, 4s, 8s...
			delay := time.Duration(math.Pow(2, float64(attempt))) * m.backoffBase
			m.app.Logger.Warn("[Retry] Job %s: attempt %d/%d failed: %v",
				job.ID, attempt, m.maxAttempts, err)

			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				stop := m.pendingStop(job)
				if stop == "" {
					stop = domain.StatusPaused
				}
				m.finalize(job, stop, "")
				return
			}
		}

		m.app.Logger.Error("[FAIL] Job %s permanently failed: %v", job.ID, err)
		m.finalize(job, domain.StatusFailed, reasonString(err))
		return
	}
}

// finalize releases the worker slot and applies the job's terminal (or
// paused) state. By the time it runs, the external process is fully reaped,
// which is what makes reporting Paused safe.
func (m *QueueManager) finalize(job *domain.Job, status domain.JobStatus, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job.CancelFunc != nil {
		job.CancelFunc()
		job.CancelFunc = nil
	}
	job.PendingStop = ""
	m.active--

	switch status {
	case domain.StatusCompleted:
		if job.Progress == nil {
			job.Progress = &domain.Progress{}
		}
		job.Progress.Percent = 100
		job.Progress.ETA = ""
		m.setStatusLocked(job, domain.StatusCompleted)
		m.publishLocked(domain.Event{
			Type:  domain.EventJobCompleted,
			JobID: job.ID,
			Completed: &domain.Completion{
				JobID:   job.ID,
				URL:     job.URL,
				Title:   job.Title,
				Options: job.Options,
				Path:    job.OutputPath,
				Time:    time.Now(),
			},
		})

	case domain.StatusFailed:
		job.Error = reason
		m.setStatusLocked(job, domain.StatusFailed)
		m.publishLocked(domain.Event{
			Type:   domain.EventJobError,
			JobID:  job.ID,
			Reason: reason,
		})

	case domain.StatusCancelled:
		m.setStatusLocked(job, domain.StatusCancelled)
		m.dropJobLocked(job)

	default:
		m.setStatusLocked(job, domain.StatusPaused)
	}

	m.dispatchLocked()
}

func (m *QueueManager) pendingStop(job *domain.Job) domain.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return job.PendingStop
}

// cleanupPartial best-effort removes the artifacts a cancelled job left
// behind. yt-dlp writes <dest> and <dest>.part depending on the phase.
func (m *QueueManager) cleanupPartial(job *domain.Job) {
	if job.OutputPath == "" {
		return
	}
	for _, path := range []string{job.OutputPath + ".part", job.OutputPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			m.app.Logger.Warn("cleanup %s: %v", path, err)
		}
	}
}

// reasonString keeps the user-facing failure text free of the taxonomy
// wrapper prefixes.
func reasonString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
