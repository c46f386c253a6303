package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/middleware"
	"github.com/evalbridge/evalbridge/internal/service"
)

// EventsHandler streams aggregation progress over Server-Sent Events
type EventsHandler struct {
	hub    *service.RealtimeHub
	logger *zap.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(hub *service.RealtimeHub, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{
		hub:    hub,
		logger: logger,
	}
}

// Stream handles GET /v1/events
func (h *EventsHandler) Stream(c *fiber.Ctx) error {
	projectID, ok := middleware.GetProjectID(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Project ID not found")
	}
	formID := middleware.GetFormID(c)

	// Set SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")
	c.Set("X-Accel-Buffering", "no") // Disable nginx buffering

	updates, cancel := h.hub.Subscribe(projectID, formID)
	ctx := c.Context()

	h.logger.Info("SSE client connected",
		zap.String("project_id", projectID.String()),
		zap.String("form_id", formID),
	)

	ctx.SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		fmt.Fprintf(w, "event: connected\n")
		fmt.Fprintf(w, "data: {\"formId\":%q}\n\n", formID)
		w.Flush()

		heartbeat := time.NewTicker(30 * time.Second)
		defer heartbeat.Stop()

		for {
			select {
			case state, ok := <-updates:
				if !ok {
					return
				}

				data, err := json.Marshal(state)
				if err != nil {
					h.logger.Error("failed to encode aggregation state", zap.Error(err))
					continue
				}

				fmt.Fprintf(w, "event: aggregation\n")
				fmt.Fprintf(w, "data: %s\n\n", data)
				if err := w.Flush(); err != nil {
					return
				}

			case <-heartbeat.C:
				fmt.Fprintf(w, ": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}))

	return nil
}
