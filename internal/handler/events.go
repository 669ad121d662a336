package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/skillswap/exchange-server-go/internal/metrics"
	"github.com/skillswap/exchange-server-go/internal/middleware"
	"github.com/skillswap/exchange-server-go/internal/sse"
)

const transportSSE = "sse"

// EventsHandler streams live snapshots over server-sent events.
type EventsHandler struct {
	watcher   watcher
	metrics   *metrics.Metrics
	heartbeat time.Duration
}

func NewEventsHandler(matches MatchAPI, sessions SessionAPI, rooms RoomAPI, m *metrics.Metrics) *EventsHandler {
	return &EventsHandler{
		watcher:   watcher{matches: matches, sessions: sessions, rooms: rooms},
		metrics:   m,
		heartbeat: sse.HeartbeatInterval,
	}
}

// GET /v1/events?topic=...&sessionId=...
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Streaming not supported"})
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

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	h.metrics.ListenerOpened(transportSSE)
	defer h.metrics.ListenerClosed(transportSSE)

	log.Info().
		Str("userId", userID).
		Str("topic", req.Topic).
		Str("sessionId", req.SessionID).
		Msg("sse connection established")

	if err := h.sendEvent(w, flusher, eventConnected, map[string]string{
		"topic":     req.Topic,
		"sessionId": req.SessionID,
	}); err != nil {
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().
				Str("userId", userID).
				Str("topic", req.Topic).
				Msg("sse connection closed by client")
			return

		case event := <-events:
			if err := h.sendRawEvent(w, flusher, event); err != nil {
				log.Error().Err(err).Msg("failed to send event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				log.Debug().
					Str("userId", userID).
					Msg("heartbeat failed, closing connection")
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) error {
	return h.sendRawEvent(w, flusher, newEvent(eventType, data))
}

func (h *EventsHandler) sendRawEvent(w http.ResponseWriter, flusher http.Flusher, event sse.Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", event.Data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
