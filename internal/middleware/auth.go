package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/skillswap/exchange-server-go/internal/audit"
	apperrors "github.com/skillswap/exchange-server-go/internal/errors"
)

type contextKey string

const (
	UserIDContextKey contextKey = "userId"
	TokenContextKey  contextKey = "accessToken"

	userSlotContextKey contextKey = "userSlot"
)

// userSlot lets RequestLogger see the user id that a later middleware
// attaches to a derived request.
type userSlot struct {
	id string
}

// Authenticator resolves an access token to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDContextKey).(string); ok {
		return id
	}
	return ""
}

func GetToken(ctx context.Context) string {
	if token, ok := ctx.Value(TokenContextKey).(string); ok {
		return token
	}
	return ""
}

// WithUserID stores an authenticated user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	if slot, ok := ctx.Value(userSlotContextKey).(*userSlot); ok {
		slot.id = userID
	}
	return context.WithValue(ctx, UserIDContextKey, userID)
}

type AuthMiddleware struct {
	auth Authenticator
}

func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeError(w, apperrors.Unauthorized("missing authentication token"))
			return
		}

		userID, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			if apperrors.HasCode(err, apperrors.ErrCodeRemoteOperation) {
				log.Error().Err(err).Msg("auth middleware: token check failed")
			} else {
				audit.LogFromRequest(r, audit.Event{
					Type:    audit.EventAuthFailure,
					Details: map[string]interface{}{"path": r.URL.Path},
				})
			}
			writeError(w, err)
			return
		}

		ctx := WithUserID(r.Context(), userID)
		ctx = context.WithValue(ctx, TokenContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken reads the Authorization header, falling back to the token query
// parameter for EventSource and WebSocket clients that cannot set headers.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
