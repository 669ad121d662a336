package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	apperrors "github.com/skillswap/exchange-server-go/internal/errors"
	"github.com/skillswap/exchange-server-go/internal/metrics"
	"github.com/skillswap/exchange-server-go/internal/middleware"
	"github.com/skillswap/exchange-server-go/internal/sse"
)

const (
	transportWS = "websocket"

	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 8 << 10

	wsActionSend = "send"
)

// wsFrame is both the outbound event envelope and the inbound command.
type wsFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	Text string          `json:"text,omitempty"`
}

// WSHandler streams the same snapshots as EventsHandler over a WebSocket and
// accepts chat sends on the messages topic.
type WSHandler struct {
	watcher  watcher
	rooms    RoomAPI
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
}

func NewWSHandler(matches MatchAPI, sessions SessionAPI, rooms RoomAPI, m *metrics.Metrics) *WSHandler {
	return &WSHandler{
		watcher: watcher{matches: matches, sessions: sessions, rooms: rooms},
		rooms:   rooms,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Access is granted by the bearer token, never by cookies.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// GET /v1/ws?topic=...&sessionId=...&token=...
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	req := streamRequest{
		Topic:     r.URL.Query().Get("topic"),
		SessionID: r.URL.Query().Get("sessionId"),
		UserID:    userID,
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, stop, err := h.watcher.start(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}
	defer stop()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.metrics.ListenerOpened(transportWS)
	defer h.metrics.ListenerClosed(transportWS)

	log.Info().
		Str("userId", userID).
		Str("topic", req.Topic).
		Str("sessionId", req.SessionID).
		Msg("websocket connection established")

	replies := make(chan sse.Event, streamBuffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(ctx, conn, events, replies)
		cancel()
		// Unblocks readLoop when the write side fails first.
		conn.Close()
	}()

	h.readLoop(ctx, conn, req, replies)
	cancel()
	<-done

	log.Info().
		Str("userId", userID).
		Str("topic", req.Topic).
		Msg("websocket connection closed")
}

// readLoop handles inbound commands until the client goes away.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, req streamRequest, replies chan<- sse.Event) {
	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("userId", req.UserID).Msg("websocket read failed")
			}
			return
		}

		reply := h.handleFrame(ctx, req, frame)
		if reply == nil {
			continue
		}
		select {
		case replies <- *reply:
		case <-ctx.Done():
			return
		}
	}
}

// handleFrame runs one inbound command. New messages reach the sender through
// the snapshot stream, so success needs no reply.
func (h *WSHandler) handleFrame(ctx context.Context, req streamRequest, frame wsFrame) *sse.Event {
	if frame.Type != wsActionSend || req.Topic != TopicMessages {
		e := errorEvent(apperrors.InvalidInput("type", "only send on the messages topic is supported"))
		return &e
	}
	if _, err := h.rooms.SendMessage(ctx, req.SessionID, req.UserID, frame.Text); err != nil {
		e := errorEvent(err)
		return &e
	}
	return nil
}

// writeLoop is the only writer on conn.
func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, events <-chan sse.Event, replies <-chan sse.Event) {
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	send := func(e sse.Event) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(wsFrame{Type: e.Type, Data: e.Data})
	}

	if err := send(newEvent(eventConnected, map[string]string{})); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return
		case e := <-events:
			if err := send(e); err != nil {
				return
			}
		case e := <-replies:
			if err := send(e); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
