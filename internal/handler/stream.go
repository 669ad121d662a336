package handler

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	apperrors "github.com/skillswap/exchange-server-go/internal/errors"
	"github.com/skillswap/exchange-server-go/internal/model"
	"github.com/skillswap/exchange-server-go/internal/service"
	"github.com/skillswap/exchange-server-go/internal/sse"
)

const (
	TopicMessages = "messages"
	TopicFiles    = "files"
	TopicSessions = "sessions"
	TopicMatches  = "matches"

	eventConnected = "connected"
	eventSnapshot  = "snapshot"
	eventError     = "error"

	streamBuffer = 8
)

type snapshotPayload struct {
	Topic     string `json:"topic"`
	SessionID string `json:"sessionId,omitempty"`
	Items     any    `json:"items"`
}

type errorPayload struct {
	Error string              `json:"error"`
	Code  apperrors.ErrorCode `json:"code"`
}

// streamRequest names what a live listener wants to follow.
type streamRequest struct {
	Topic     string
	SessionID string
	UserID    string
}

// watcher turns service snapshot callbacks into a stream of wire events shared
// by the SSE and WebSocket transports.
type watcher struct {
	matches  MatchAPI
	sessions SessionAPI
	rooms    RoomAPI
}

// start begins the watch and returns the channel snapshots arrive on. Access
// errors are returned before anything is subscribed.
func (wt *watcher) start(ctx context.Context, req streamRequest) (<-chan sse.Event, func(), error) {
	out := make(chan sse.Event, streamBuffer)
	emit := func(e sse.Event) {
		select {
		case out <- e:
		case <-ctx.Done():
		}
	}
	onError := func(err error) {
		emit(errorEvent(err))
	}

	var (
		stop func()
		err  error
	)
	switch req.Topic {
	case TopicMessages:
		stop, err = wt.rooms.WatchMessages(ctx, req.SessionID, req.UserID, func(items []model.ChatMessage) {
			emit(snapshotEvent(req, items))
		}, onError)
	case TopicFiles:
		stop, err = wt.rooms.WatchFiles(ctx, req.SessionID, req.UserID, func(items []model.SharedFile) {
			emit(snapshotEvent(req, items))
		}, onError)
	case TopicSessions:
		stop, err = wt.sessions.WatchSessions(ctx, req.UserID, func(items []model.SessionView) {
			emit(snapshotEvent(req, items))
		}, onError)
	case TopicMatches:
		stop, err = wt.matches.WatchMatches(ctx, req.UserID, func(result *service.MatchResult) {
			hideEmails(result.Matches)
			hideEmails(result.Community)
			emit(snapshotEvent(req, result))
		}, onError)
	default:
		return nil, nil, apperrors.InvalidInput("topic", "must be one of messages, files, sessions, matches")
	}
	if err != nil {
		return nil, nil, err
	}
	return out, stop, nil
}

func snapshotEvent(req streamRequest, items any) sse.Event {
	return newEvent(eventSnapshot, snapshotPayload{
		Topic:     req.Topic,
		SessionID: req.SessionID,
		Items:     items,
	})
}

func errorEvent(err error) sse.Event {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal("An unexpected error occurred")
	}
	return newEvent(eventError, errorPayload{Error: appErr.Message, Code: appErr.Code})
}

func newEvent(eventType string, data any) sse.Event {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("failed to encode stream event")
		raw = []byte("null")
	}
	return sse.Event{Type: eventType, Data: raw}
}
