package engine

import (
	"context"

	"github.com/dustin/go-humanize"

	"github.com/videoteka/videoteka/internal/app"
	"github.com/videoteka/videoteka/internal/domain"
)

// RecordHistory consumes completion events and appends them to the history
// store. It owns history persistence entirely; the queue core never reads
// history back. Blocks until ctx is cancelled.
func RecordHistory(ctx context.Context, m *QueueManager, appCtx *app.Context) {
	events, cancel := m.Subscribe(256)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type != domain.EventJobCompleted || ev.Completed == nil {
				continue
			}

			comp := ev.Completed
			rec := domain.DownloadRecord{
				URL:      comp.URL,
				Title:    comp.Title,
				Date:     comp.Time,
				FilePath: comp.Path,
				Quality:  comp.Options.Quality,
				Status:   "completed",
			}
			if job, ok := m.Job(comp.JobID); ok && job.Progress != nil && job.Progress.TotalBytes > 0 {
				rec.FileSize = humanize.IBytes(uint64(job.Progress.TotalBytes))
			}

			if err := appCtx.Store.AddDownload(rec); err != nil {
				appCtx.Logger.Error("record history for %s: %v", comp.JobID, err)
			}
		}
	}
}
