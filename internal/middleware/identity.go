package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AnshRaj112/ecoscan-backend/internal/models"
)

// DeviceIDHeader carries the anonymous device identifier.
const DeviceIDHeader = "X-Device-ID"

// Identity is the caller behind a request: a session, a device, both or neither.
type Identity struct {
	Session  *models.Session
	Token    string
	DeviceID string
}

// Key names the caller's coordinator: "user:<id>" for sessions, else
// "device:<id>", else "".
func (id Identity) Key() string {
	switch {
	case id.Session != nil:
		return "user:" + id.Session.UserID
	case id.DeviceID != "":
		return "device:" + id.DeviceID
	default:
		return ""
	}
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}

// SessionValidator resolves a bearer token to a session; nil means unknown.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*models.Session, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

// Identify attaches the caller's Identity to the request context. WebSocket
// clients, which cannot set headers, may pass token and device_id as query
// parameters instead. Invalid device ids are ignored.
func Identify(sessions SessionValidator, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id Identity

			token := BearerToken(r)
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token != "" {
				sess, err := sessions.Validate(r.Context(), token)
				if err != nil {
					log.Warnw("session lookup failed", "error", err)
				} else if sess != nil {
					id.Session = sess
					id.Token = token
				}
			}

			device := r.Header.Get(DeviceIDHeader)
			if device == "" {
				device = r.URL.Query().Get("device_id")
			}
			if parsed, err := uuid.Parse(strings.TrimSpace(device)); err == nil {
				id.DeviceID = parsed.String()
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireSession rejects requests without a valid session.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFrom(r.Context()).Session == nil {
			writeError(w, http.StatusUnauthorized, "Please sign in to continue.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCaller rejects requests that carry neither a session nor a device id.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFrom(r.Context()).Key() == "" {
			writeError(w, http.StatusBadRequest, "Missing session or "+DeviceIDHeader+" header.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin allows only sessions whose email isAdmin accepts.
func RequireAdmin(isAdmin func(email string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := IdentityFrom(r.Context()).Session
			if sess == nil {
				writeError(w, http.StatusUnauthorized, "Please sign in to continue.")
				return
			}
			if !isAdmin(sess.Email) {
				writeError(w, http.StatusForbidden, "Administrator access required.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
