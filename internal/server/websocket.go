package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/santinoo1919/medtrixmap/internal/category"
	"github.com/santinoo1919/medtrixmap/internal/session"
	"github.com/santinoo1919/medtrixmap/internal/types"
)

// WSHandler serves one map session per websocket connection.
type WSHandler struct {
	srv    *Server
	logger *slog.Logger
}

func NewWSHandler(srv *Server, logger *slog.Logger) *WSHandler {
	return &WSHandler{srv: srv, logger: logger}
}

type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type BoundsPayload struct {
	Bounds types.BoundingBox `json:"bounds"`
}

type ToggleCategoryPayload struct {
	// Category is null for the "other" bucket.
	Category *category.Category `json:"category"`
}

type ToggleSourcePayload struct {
	Source string `json:"source"`
}

type SelectRegionPayload struct {
	Source string `json:"source"`
	Region string `json:"region"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type outMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.srv.cfg.OriginPatterns,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}
	clientID := uuid.New().String()
	sess, err := h.srv.newSession(clientID)
	if err != nil {
		h.logger.Error("failed to create session", "client_id", clientID, "error", err)
		conn.Close(websocket.StatusInternalError, "session unavailable")
		return
	}

	h.srv.sessionStarted()
	defer h.srv.sessionEnded()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		if err := sess.Run(ctx); err != nil {
			h.logger.Error("session failed", "client_id", clientID, "error", err)
		}
	}()

	control := make(chan outMessage, 8)
	go h.writeLoop(ctx, cancel, conn, sess, control)

	h.readLoop(ctx, conn, sess, control)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sess *session.Session, control chan<- outMessage) {
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				h.logger.Debug("websocket read error", "client_id", sess.ID(), "error", err)
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug("invalid message format", "client_id", sess.ID(), "error", err)
			continue
		}

		if err := h.dispatch(sess, msg); err != nil {
			h.logger.Debug("rejected message", "client_id", sess.ID(), "type", msg.Type, "error", err)
			select {
			case control <- outMessage{Type: "error", Payload: ErrorPayload{Message: err.Error()}}:
			default:
			}
			continue
		}

		if msg.Type == "ping" {
			select {
			case control <- outMessage{Type: "pong"}:
			default:
			}
		}
	}
}

func (h *WSHandler) dispatch(sess *session.Session, msg WSMessage) error {
	switch msg.Type {
	case "ready", "move":
		var payload BoundsPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		if err := payload.Bounds.Validate(); err != nil {
			return err
		}
		if msg.Type == "ready" {
			return sess.Ready(payload.Bounds)
		}
		return sess.Move(payload.Bounds)

	case "toggle_category":
		var payload ToggleCategoryPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		c := category.Other
		if payload.Category != nil {
			c = *payload.Category
		}
		return sess.ToggleCategory(c)

	case "toggle_source":
		var payload ToggleSourcePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		return sess.ToggleSource(payload.Source)

	case "select_region":
		var payload SelectRegionPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		return sess.SelectRegion(payload.Source, payload.Region)

	case "ping":
		return nil
	}
	return fmt.Errorf("unknown message type %q", msg.Type)
}

func (h *WSHandler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sess *session.Session, control <-chan outMessage) {
	defer cancel()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		var msg outMessage
		select {
		case <-ctx.Done():
			return

		case u, ok := <-sess.Updates():
			if !ok {
				return
			}
			switch {
			case u.Layers != nil:
				msg = outMessage{Type: "layers", Payload: u.Layers}
			case u.SourceError != nil:
				msg = outMessage{Type: "source_error", Payload: u.SourceError}
			default:
				continue
			}

		case msg = <-control:

		case <-ticker.C:
			pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pingCtx)
			cancelPing()
			if err != nil {
				return
			}
			continue
		}

		data, err := json.Marshal(msg)
		if err != nil {
			h.logger.Error("failed to encode message", "client_id", sess.ID(), "type", msg.Type, "error", err)
			continue
		}
		writeCtx, cancelWrite := context.WithTimeout(ctx, 5*time.Second)
		err = conn.Write(writeCtx, websocket.MessageText, data)
		cancelWrite()
		if err != nil {
			return
		}
	}
}
