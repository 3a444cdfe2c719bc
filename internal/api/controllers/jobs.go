package controllers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/videoteka/videoteka/internal/app"
	"github.com/videoteka/videoteka/internal/domain"
	"github.com/videoteka/videoteka/internal/engine"
)

type JobsController struct {
	App   *app.Context
	Queue *engine.QueueManager
}

// Create adds one queued job per URL. Blank option fields take the
// configured defaults; the snapshot is then frozen for the job's lifetime.
func (ctrl *JobsController) Create(c *echo.Context) error {
	var req AddJobsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	defaults := ctrl.App.Config.Defaults
	opts := domain.Options{
		Quality:      req.Quality,
		Format:       req.Format,
		AudioQuality: req.AudioQuality,
		Subtitles:    defaults.Subtitles,
		SubtitleLang: req.SubtitleLang,
		DestDir:      req.DestDir,
	}
	if opts.Quality == "" {
		opts.Quality = defaults.Quality
	}
	if opts.Format == "" {
		opts.Format = defaults.Format
	}
	if opts.AudioQuality == "" {
		opts.AudioQuality = defaults.AudioQuality
	}
	if req.Subtitles != nil {
		opts.Subtitles = *req.Subtitles
	}
	if opts.SubtitleLang == "" {
		opts.SubtitleLang = defaults.SubtitleLang
	}

	ids, err := ctrl.Queue.AddJobs(req.URLs, opts)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, AddJobsResponse{IDs: ids})
}

// List returns the live queue in dispatch order.
func (ctrl *JobsController) List(c *echo.Context) error {
	return c.JSON(http.StatusOK, QueueSnapshot{
		Jobs:   ctrl.Queue.Jobs(),
		Active: ctrl.Queue.ActiveCount(),
		Limit:  ctrl.Queue.Limit(),
	})
}

func (ctrl *JobsController) Get(c *echo.Context) error {
	job, ok := ctrl.Queue.Job(c.Param("id"))
	if !ok {
		return writeError(c, domain.ErrJobNotFound)
	}
	return c.JSON(http.StatusOK, job)
}

// Remove cancels a job, stopping its download if one is running. Removing
// an unknown id succeeds; the outcome the caller asked for already holds.
func (ctrl *JobsController) Remove(c *echo.Context) error {
	if err := ctrl.Queue.RemoveJob(c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (ctrl *JobsController) Pause(c *echo.Context) error {
	if err := ctrl.Queue.PauseJob(c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (ctrl *JobsController) Resume(c *echo.Context) error {
	if err := ctrl.Queue.ResumeJob(c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (ctrl *JobsController) Retry(c *echo.Context) error {
	if err := ctrl.Queue.RetryJob(c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Reorder moves a queued job within the pending queue. Jobs that are no
// longer queued are left alone.
func (ctrl *JobsController) Reorder(c *echo.Context) error {
	var req PositionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if _, ok := ctrl.Queue.Job(c.Param("id")); !ok {
		return writeError(c, domain.ErrJobNotFound)
	}
	ctrl.Queue.ReorderJob(c.Param("id"), req.Position)
	return c.NoContent(http.StatusNoContent)
}

func (ctrl *JobsController) PauseAll(c *echo.Context) error {
	ctrl.Queue.PauseAll()
	return c.NoContent(http.StatusNoContent)
}

func (ctrl *JobsController) ClearCompleted(c *echo.Context) error {
	ctrl.Queue.ClearCompleted()
	return c.NoContent(http.StatusNoContent)
}

func (ctrl *JobsController) SetConcurrency(c *echo.Context) error {
	var req ConcurrencyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if err := ctrl.Queue.SetConcurrencyLimit(req.Limit); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ConcurrencyRequest{Limit: ctrl.Queue.Limit()})
}

// writeError maps domain errors onto HTTP statuses.
func writeError(c *echo.Context, err error) error {
	switch {
	case domain.IsValidation(err):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrJobNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}
