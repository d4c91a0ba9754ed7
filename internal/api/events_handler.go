package api

import (
	"io"
	"net/http"

	"streamvault/video-platform/internal/events"

	"github.com/gin-gonic/gin"
)

// EventsHandler exposes the push channel as a server-sent-events stream.
type EventsHandler struct {
	broadcaster *events.Broadcaster
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(broadcaster *events.Broadcaster) *EventsHandler {
	return &EventsHandler{broadcaster: broadcaster}
}

// Subscribe streams processing events for the caller's tenant over SSE.
// Observers only ever see their own tenant's events; there is no replay, an
// observer connecting after an event fired never receives it. The token may
// arrive via the "token" query parameter since EventSource cannot set
// headers.
// GET /api/v1/events
func (h *EventsHandler) Subscribe(c *gin.Context) {
	tenantID, err := getTenantIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid tenant ID in token.")
		return
	}

	ch, cancel := h.broadcaster.Subscribe(tenantID.Hex())
	defer cancel()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev)
			return true
		case <-clientGone:
			return false
		}
	})
}
