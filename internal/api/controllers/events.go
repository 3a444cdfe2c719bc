package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/videoteka/videoteka/internal/app"
	"github.com/videoteka/videoteka/internal/engine"
)

type EventsController struct {
	App   *app.Context
	Queue *engine.QueueManager
}

// Stream pushes manager events to the client as server-sent events until
// the client goes away. Slow consumers lose events rather than stalling
// the queue; the buffer absorbs normal progress bursts.
func (ctrl *EventsController) Stream(c *echo.Context) error {
	events, cancel := ctrl.Queue.Subscribe(256)
	defer cancel()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(res)
	if err := rc.Flush(); err != nil {
		return err
	}

	ctx := c.Request().Context()
	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				ctrl.App.Logger.Error("encode event %s: %v", ev.Type, err)
				continue
			}
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
				return nil
			}
			if err := rc.Flush(); err != nil {
				return nil
			}

		case <-keepalive.C:
			if _, err := fmt.Fprint(res, ": keepalive\n\n"); err != nil {
				return nil
			}
			if err := rc.Flush(); err != nil {
				return nil
			}
		}
	}
}
