package handler

import (
	"fmt"
	"net/http"
	"time"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/sse"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// /items/events のSSEストリーム。
// 変更イベントをpushで流す。クライアントはポーリングしない。
type EventsHandler struct {
	hub *sse.Hub
}

// DI
func NewEventsHandler(hub *sse.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

func (h *EventsHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	e.GET("/items/events", h.stream, middleware.AuthJWT(cfg))
}

func (h *EventsHandler) stream(c echo.Context) error {
	res := c.Response()

	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	clientID := uuid.NewString()
	events := h.hub.Subscribe(clientID)
	//切断時に必ず解除する
	defer h.hub.Unsubscribe(clientID)

	ctx := c.Request().Context()
	ticker := time.NewTicker(sse.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case msg, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := fmt.Fprintf(res, "event: change\ndata: %s\n\n", msg); err != nil {
				return nil
			}
			res.Flush()

		case <-ticker.C:
			//接続維持のコメント行
			if _, err := fmt.Fprint(res, ": heartbeat\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
