package handler

import (
	"context"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"libportal/internal/live"
	"libportal/internal/model"
	"libportal/internal/service"
)

type liveMessage[T any] struct {
	Collection string `json:"collection"`
	Items      []T    `json:"items"`
}

type liveError struct {
	Collection string `json:"collection"`
	Error      string `json:"error"`
}

// RequireUpgrade rejects plain HTTP requests to websocket routes.
func RequireUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// LiveCollection streams the full ordered collection on connect and after
// every change. The subscription ends when the client disconnects or base
// is cancelled, in which case the client gets a going-away close frame.
func LiveCollection[T model.Entity](base context.Context, h *Handler, hub *live.Hub, svc service.ContentService[T]) fiber.Handler {
	if base == nil {
		base = context.Background()
	}
	collection := svc.Schema().Collection
	fetch := func(ctx context.Context) ([]T, error) {
		return svc.List(ctx, service.ListOptions{})
	}

	return websocket.New(func(conn *websocket.Conn) {
		ctx, cancel := context.WithCancel(base)
		defer cancel()

		// Reads only detect the close; clients never send data.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		sub := live.Subscribe[T](ctx, hub, collection, fetch)
		defer sub.Close()

		for snap := range sub.C {
			var err error
			if snap.Err != nil {
				h.logger.Warn().Err(snap.Err).Str("collection", collection).Msg("live snapshot failed")
				err = conn.WriteJSON(liveError{Collection: collection, Error: "failed to load collection"})
			} else {
				err = conn.WriteJSON(liveMessage[T]{Collection: collection, Items: snap.Items})
			}
			if err != nil {
				return
			}
		}
		if base.Err() != nil {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		}
	})
}
