package api

import (
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/videoteka/videoteka/internal/api/controllers"
	"github.com/videoteka/videoteka/internal/app"
	"github.com/videoteka/videoteka/internal/engine"
)

func RegisterRoutes(e *echo.Echo, app *app.Context, queue *engine.QueueManager) {

	// Middleware: Request Logger
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			app.Logger.Info("%s %s | %d | %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	jobsCtrl := &controllers.JobsController{App: app, Queue: queue}
	historyCtrl := &controllers.HistoryController{App: app}
	eventsCtrl := &controllers.EventsController{App: app, Queue: queue}

	// Job lifecycle
	e.POST("/api/jobs", jobsCtrl.Create)
	e.GET("/api/jobs", jobsCtrl.List)
	e.GET("/api/jobs/:id", jobsCtrl.Get)
	e.DELETE("/api/jobs/:id", jobsCtrl.Remove)
	e.POST("/api/jobs/:id/pause", jobsCtrl.Pause)
	e.POST("/api/jobs/:id/resume", jobsCtrl.Resume)
	e.POST("/api/jobs/:id/retry", jobsCtrl.Retry)
	e.PUT("/api/jobs/:id/position", jobsCtrl.Reorder)

	// Queue-wide controls
	e.POST("/api/queue/pause", jobsCtrl.PauseAll)
	e.POST("/api/queue/clear-completed", jobsCtrl.ClearCompleted)
	e.PUT("/api/queue/concurrency", jobsCtrl.SetConcurrency)

	// Download history
	e.GET("/api/history", historyCtrl.List)
	e.DELETE("/api/history/:id", historyCtrl.Delete)
	e.DELETE("/api/history", historyCtrl.Clear)

	// Live event stream (SSE)
	e.GET("/api/events", eventsCtrl.Stream)
}
