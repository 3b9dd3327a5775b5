package middleware

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"treeAnalysis/api/models"
)

const OwnerKey contextKey = "owner"

// UserResolver looks a session token up in the user store, creating the
// user on first contact.
type UserResolver interface {
	GetOrCreateUser(ctx context.Context, cookieToken string) (*models.User, error)
}

// Session resolves the anonymous cookie identity once at the request
// boundary and threads the typed owner through the context. Handlers
// never touch the cookie themselves.
func Session(resolver UserResolver, cookieName string, maxAge int, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if c, err := r.Cookie(cookieName); err == nil {
				token = c.Value
			}

			issued := false
			if token == "" {
				token = newSessionToken()
				issued = true
			}

			user, err := resolver.GetOrCreateUser(r.Context(), token)
			if err != nil {
				logger.Error("Failed to resolve session",
					zap.String("trace_id", GetTraceID(r.Context())),
					zap.Error(err),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"error": "Failed to resolve session"})
				return
			}

			if issued {
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    token,
					MaxAge:   maxAge,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), OwnerKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOwner returns the session user resolved by the Session middleware.
func GetOwner(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(OwnerKey).(*models.User)
	return user, ok
}

func newSessionToken() string {
	buf := make([]byte, 32)
	rand.Read(buf)
	return base64.RawURLEncoding.EncodeToString(buf)
}
