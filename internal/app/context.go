package app

import (
	"context"

	"github.com/videoteka/videoteka/internal/domain"
	"github.com/videoteka/videoteka/internal/fetch"
	"github.com/videoteka/videoteka/internal/infra/config"
	"github.com/videoteka/videoteka/internal/infra/logger"
)

// Fetcher drives the external download tool for one job at a time. The
// engine calls it without importing the fetch package directly, which keeps
// the worker pool testable against a stub.
type Fetcher interface {
	Download(ctx context.Context, url string, opts domain.Options, onLine fetch.LineFunc) error
	Probe(ctx context.Context, url string) (domain.VideoInfo, error)
}

// Store is the persistence surface the engine and the API need: live queue
// snapshots plus append-only download history.
type Store interface {
	SaveJob(job *domain.Job) error
	DeleteJob(id string) error
	ActiveJobs() ([]*domain.Job, error)

	AddDownload(rec domain.DownloadRecord) error
	ListDownloads(limit int) ([]domain.DownloadRecord, error)
	DeleteDownload(id int64) error
	ClearDownloads() error
}

// Context holds the core environment and shared resources for the daemon.
// It acts as the single source of truth for application wiring.
type Context struct {
	Config *config.Config
	Logger *logger.Logger

	Fetcher Fetcher
	Store   Store
}

// NewContext initializes the base environment.
func NewContext(cfg *config.Config, log *logger.Logger) *Context {
	return &Context{
		Config: cfg,
		Logger: log,
	}
}
