package domain

import (
	"context"
	"time"
)

type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusDownloading JobStatus = "downloading"
	StatusPaused      JobStatus = "paused"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
	StatusCancelled   JobStatus = "cancelled"
)

// Terminal reports whether no further transition exists out of the status.
// Failed is terminal too; it only leaves via an explicit retry, which resets
// the job back to queued.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Options is the per-job download configuration, captured once when the job
// is added. Settings changes after that never affect an already-queued job.
type Options struct {
	Quality      string `json:"quality"`       // best, 1080p, 720p, 480p, audio
	Format       string `json:"format"`        // mp4, webm, mkv
	AudioQuality string `json:"audio_quality"` // best, 192k, 128k
	Subtitles    bool   `json:"subtitles"`
	SubtitleLang string `json:"subtitle_lang"`
	DestDir      string `json:"dest_dir"`
}

// Progress is the normalized view of the fetch tool's telemetry. A job
// carries a nil Progress until the first parseable line arrives.
type Progress struct {
	Percent         float64 `json:"percent"`
	Rate            string  `json:"rate,omitempty"`
	ETA             string  `json:"eta,omitempty"`
	TotalBytes      int64   `json:"total_bytes,omitempty"`
	DownloadedBytes int64   `json:"downloaded_bytes,omitempty"`
}

// Job represents one requested download and its lifecycle state.
type Job struct {
	ID      string    `json:"id"`
	URL     string    `json:"url"`
	Title   string    `json:"title,omitempty"`
	Options Options   `json:"options"`
	Status  JobStatus `json:"status"`

	Progress   *Progress `json:"progress,omitempty"`
	OutputPath string    `json:"output_path,omitempty"`

	// Resumable is set once telemetry shows the tool continuing from a
	// partial file, i.e. a later resume will not restart from zero.
	Resumable bool `json:"resumable,omitempty"`

	Position int    `json:"position"`
	Error    string `json:"error,omitempty"`

	AddedAt time.Time `json:"added_at"`

	// CancelFunc is the job's control handle. It is non-nil exactly while
	// the job is downloading and an external process is alive.
	CancelFunc context.CancelFunc `json:"-"`

	// PendingStop records which state a live job should land in once its
	// worker has fully released the process handle.
	PendingStop JobStatus `json:"-"`
}

// Clone returns a copy safe to hand to observers. The control handle is
// deliberately not copied; mutation rights stay with the owning worker.
func (j *Job) Clone() *Job {
	c := *j
	c.CancelFunc = nil
	c.PendingStop = ""
	if j.Progress != nil {
		p := *j.Progress
		c.Progress = &p
	}
	return &c
}

// VideoInfo is the metadata probe result for a URL, fetched without
// downloading anything.
type VideoInfo struct {
	Title      string `json:"title"`
	Duration   int    `json:"duration"`
	Uploader   string `json:"uploader"`
	Thumbnail  string `json:"thumbnail"`
}

// DownloadRecord is one row of persisted download history.
type DownloadRecord struct {
	ID       int64     `json:"id"`
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	Date     time.Time `json:"download_date"`
	FilePath string    `json:"file_path"`
	FileSize string    `json:"file_size"`
	Quality  string    `json:"video_quality"`
	Status   string    `json:"status"`
}
