package httpapi

import (
	"net/http"

	"callgate/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Bearer auth already gates this endpoint; cross-origin dashboards are
	// expected clients.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamAgents upgrades to a websocket and forwards presence events as JSON
// until the client disconnects or the server shuts down. Slow clients lose
// events rather than backpressuring the registry.
func (h Handlers) StreamAgents(c *gin.Context) {
	log := logger.FromGin(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		log.Warn("presence stream upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	sub := h.Hub.Subscribe()
	defer sub.Close()

	// Reader goroutine: surfaces client disconnects and discards any
	// inbound frames (the stream is one-way).
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				log.Debug("presence stream write failed", "err", err)
				return
			}
		}
	}
}
