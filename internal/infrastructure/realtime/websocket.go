package realtime

import (
	"context"
	"errors"
	"net/http"

	"shopify-insights/internal/domain"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Control frames written by the server outside the event stream.
const (
	FrameConnected domain.EventKind = "connected"
	FrameJoined    domain.EventKind = "joined"
	FrameLeft      domain.EventKind = "left"
	FramePong      domain.EventKind = "pong"
	FrameError     domain.EventKind = "error"
)

// clientCommand is what dashboards send: join/leave a group or ping.
type clientCommand struct {
	Type  string `json:"type"`
	Group string `json:"group,omitempty"`
}

type groupAck struct {
	Group string `json:"group"`
}

type sessionInfo struct {
	SessionID string `json:"sessionId"`
}

// WebsocketHandler serves /ws: one hub session per connection.
type WebsocketHandler struct {
	hub            *Hub
	originPatterns []string
	logger         zerolog.Logger
}

// NewWebsocketHandler accepts connections from originPatterns; "*" accepts any origin.
func NewWebsocketHandler(hub *Hub, originPatterns []string, logger zerolog.Logger) *WebsocketHandler {
	return &WebsocketHandler{
		hub:            hub,
		originPatterns: originPatterns,
		logger:         logger.With().Str("component", "websocket").Logger(),
	}
}

func (h *WebsocketHandler) acceptOptions() *websocket.AcceptOptions {
	for _, p := range h.originPatterns {
		if p == "*" {
			return &websocket.AcceptOptions{InsecureSkipVerify: true}
		}
	}
	return &websocket.AcceptOptions{OriginPatterns: h.originPatterns}
}

func (h *WebsocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Websocket handshake failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	session := h.hub.Connect()
	defer h.hub.Disconnect(session.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := wsjson.Write(ctx, conn, domain.NewEvent(FrameConnected, sessionInfo{SessionID: session.ID})); err != nil {
		return
	}

	go h.readLoop(ctx, cancel, conn, session.ID)

	if err := h.writeLoop(ctx, conn, session); err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Debug().Err(err).Str("sessionId", session.ID).Msg("Websocket write loop ended")
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

// writeLoop drains the session buffer onto the socket.
func (h *WebsocketHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *Session) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-session.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, event); err != nil {
				return err
			}
		}
	}
}

// readLoop handles client commands and ends the session on any read error.
func (h *WebsocketHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sessionID string) {
	defer cancel()
	for {
		var cmd clientCommand
		if err := wsjson.Read(ctx, conn, &cmd); err != nil {
			return
		}

		var reply domain.Event
		switch cmd.Type {
		case "join":
			if err := h.hub.Join(sessionID, cmd.Group); err != nil {
				return
			}
			reply = domain.NewEvent(FrameJoined, groupAck{Group: cmd.Group})
		case "leave":
			if err := h.hub.Leave(sessionID, cmd.Group); err != nil {
				return
			}
			reply = domain.NewEvent(FrameLeft, groupAck{Group: cmd.Group})
		case "ping":
			reply = domain.NewEvent(FramePong, nil)
		default:
			reply = domain.NewEvent(FrameError, map[string]string{"error": "unknown command " + cmd.Type})
		}
		if err := wsjson.Write(ctx, conn, reply); err != nil {
			return
		}
	}
}
