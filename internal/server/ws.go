package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

const wsWriteTimeout = 10 * time.Second

// handleEvents upgrades to a websocket and streams the conversation's
// transcript events (appends, poll updates, typing, state changes) as JSON
// frames until the client disconnects.
func (a *api) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := a.store.State(id); err != nil {
		a.writeError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		a.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	// The client never sends data frames; CloseRead pumps control frames
	// and cancels the context on disconnect.
	ctx := conn.CloseRead(r.Context())

	events, subID := a.store.Events().Subscribe(ctx, id)
	defer a.store.Events().Unsubscribe(id, subID)

	a.logger.Debug("event stream opened",
		zap.String("conversation_id", id),
		zap.String("subscription_id", subID))

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				a.logger.Warn("event encode failed", zap.Error(err))
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				a.logger.Debug("event stream write failed",
					zap.String("conversation_id", id),
					zap.Error(err))
				return
			}
		}
	}
}
