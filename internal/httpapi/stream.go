package httpapi

import (
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/studyloop/tutor-backend/internal/tutor"
)

// streamEvent is one message on the tutor websocket.
type streamEvent struct {
	Type    string `json:"type"` // chunk, done, error
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleTutorStream answers one question over a websocket, relaying the
// provider's chunks as they arrive. The client sends a single
// tutor.AskRequest and receives chunk events followed by done.
func (s *Server) handleTutorStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	var req tutor.AskRequest
	if err := wsjson.Read(ctx, conn, &req); err != nil {
		s.logger.Warn("websocket read failed", "error", err)
		return
	}

	ch, err := s.tutor.AskStream(ctx, req)
	if err != nil {
		status := websocket.StatusInternalError
		if errors.Is(err, tutor.ErrEmptyQuestion) || errors.Is(err, tutor.ErrBudgetExhausted) {
			status = websocket.StatusPolicyViolation
		}
		_ = wsjson.Write(ctx, conn, streamEvent{Type: "error", Error: err.Error()})
		_ = conn.Close(status, "stream refused")
		return
	}

	for chunk := range ch {
		if chunk.Error != nil {
			_ = wsjson.Write(ctx, conn, streamEvent{Type: "error", Error: chunk.Error.Error()})
			_ = conn.Close(websocket.StatusInternalError, "stream failed")
			return
		}
		if chunk.Content != "" {
			if err := wsjson.Write(ctx, conn, streamEvent{Type: "chunk", Content: chunk.Content}); err != nil {
				return
			}
		}
	}

	_ = wsjson.Write(ctx, conn, streamEvent{Type: "done"})
	_ = conn.Close(websocket.StatusNormalClosure, "")
}
