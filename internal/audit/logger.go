// Package audit writes security-relevant account events to the structured log.
package audit

import (
	"context"
	"net"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventSignup          EventType = "signup"
	EventLoginSuccess    EventType = "login_success"
	EventLoginFailure    EventType = "login_failure"
	EventLogout          EventType = "logout"
	EventAuthFailure     EventType = "auth_failure"
	EventRateLimitExceed EventType = "rate_limit_exceeded"
	EventFileDelete      EventType = "file_delete"
)

// warnEvents are the ones worth alerting on.
var warnEvents = map[EventType]bool{
	EventLoginFailure:    true,
	EventAuthFailure:     true,
	EventRateLimitExceed: true,
}

type Event struct {
	Type      EventType
	UserID    string
	Email     string
	IP        string
	UserAgent string
	RequestID string
	Details   map[string]interface{}
}

func Log(_ context.Context, event Event) {
	level := zerolog.InfoLevel
	if warnEvents[event.Type] {
		level = zerolog.WarnLevel
	}

	e := log.WithLevel(level).
		Str("audit", "security").
		Str("eventType", string(event.Type))

	optional := []struct{ key, value string }{
		{"userId", event.UserID},
		{"email", MaskEmail(event.Email)},
		{"ip", event.IP},
		{"userAgent", event.UserAgent},
		{"requestId", event.RequestID},
	}
	for _, f := range optional {
		if f.value != "" {
			e = e.Str(f.key, f.value)
		}
	}
	if len(event.Details) > 0 {
		e = e.Fields(event.Details)
	}

	e.Msg("security audit event")
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = ClientIP(r)
	event.UserAgent = r.UserAgent()
	event.RequestID = chimiddleware.GetReqID(r.Context())
	Log(r.Context(), event)
}

// ClientIP returns the caller's address without the port. chi's RealIP
// middleware has already copied proxy headers into RemoteAddr when present.
func ClientIP(r *http.Request) string {
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}
	return email[:1] + "***" + email[at:]
}
