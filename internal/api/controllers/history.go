package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"github.com/videoteka/videoteka/internal/app"
	"github.com/videoteka/videoteka/internal/domain"
)

type HistoryController struct {
	App *app.Context
}

// List returns finished downloads, newest first. ?limit= caps the page
// size; the store applies its own default when it is absent.
func (ctrl *HistoryController) List(c *echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
		}
		limit = n
	}

	recs, err := ctrl.App.Store.ListDownloads(limit)
	if err != nil {
		return writeError(c, err)
	}
	if recs == nil {
		recs = []domain.DownloadRecord{}
	}
	return c.JSON(http.StatusOK, recs)
}

func (ctrl *HistoryController) Delete(c *echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid history id"})
	}
	if err := ctrl.App.Store.DeleteDownload(id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (ctrl *HistoryController) Clear(c *echo.Context) error {
	if err := ctrl.App.Store.ClearDownloads(); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
