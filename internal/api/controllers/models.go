package controllers

import "github.com/videoteka/videoteka/internal/domain"

// AddJobsRequest creates one job per URL. Option fields left blank (or nil)
// fall back to the daemon's configured defaults.
type AddJobsRequest struct {
	URLs         []string `json:"urls"`
	Quality      string   `json:"quality"`
	Format       string   `json:"format"`
	AudioQuality string   `json:"audio_quality"`
	Subtitles    *bool    `json:"subtitles"`
	SubtitleLang string   `json:"subtitle_lang"`
	DestDir      string   `json:"dest_dir"`
}

type AddJobsResponse struct {
	IDs []string `json:"ids"`
}

// QueueSnapshot is the full observer view: every live job in queue order
// plus the scheduler counters.
type QueueSnapshot struct {
	Jobs   []*domain.Job `json:"jobs"`
	Active int           `json:"active"`
	Limit  int           `json:"limit"`
}

type PositionRequest struct {
	Position int `json:"position"`
}

type ConcurrencyRequest struct {
	Limit int `json:"limit"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
