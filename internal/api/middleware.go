// Package api implements the journal REST API using chi.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/cors"

	"github.com/starford/journal/internal/auth"
	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/notestore"
	"github.com/starford/journal/internal/session"
)

type ctxKey int

const (
	userKey ctxKey = iota
	storeKey
	tokenKey
)

// CORSMiddleware applies CORS headers for allowedOrigins. With an empty
// list no CORS headers are sent, so browsers allow same-origin use only.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// EventSource cannot set headers, so access_token in the query is accepted too.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("access_token")
}

// AuthMiddleware resolves the request's user through svc and attaches the
// user and their loaded store to the request context. In disabled mode every
// request acts as the local user.
func AuthMiddleware(svc *auth.Service, sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			user, err := svc.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, r, "authenticate", err)
				return
			}
			store, err := sessions.Open(r.Context(), user)
			if err != nil {
				writeError(w, r, "open session", err)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = context.WithValue(ctx, storeKey, store)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userFrom(ctx context.Context) models.User {
	u, _ := ctx.Value(userKey).(models.User)
	return u
}

func storeFrom(ctx context.Context) *notestore.Store {
	s, _ := ctx.Value(storeKey).(*notestore.Store)
	return s
}

func tokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}
