package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/BuzzLyutic/minutes-tracker/internal/model"
	"github.com/BuzzLyutic/minutes-tracker/pkg/respond"
)

const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

type ctxKey struct{}

// Authenticate trusts the identity headers set by the upstream auth proxy
// and stores the actor in the request context. A missing role means Member.
func Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := model.ParseRole(r.Header.Get(HeaderUserRole))
		if !ok {
			respond.Error(w, r, http.StatusUnauthorized, "unknown role")
			return
		}
		actor := model.Actor{
			UserID: strings.TrimSpace(r.Header.Get(HeaderUserID)),
			Role:   role,
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, actor)))
	})
}

// RequireUser rejects requests without a user id.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ActorFrom(r.Context()).UserID == "" {
			respond.Error(w, r, http.StatusUnauthorized, "missing "+HeaderUserID+" header")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ActorFrom(ctx context.Context) model.Actor {
	actor, _ := ctx.Value(ctxKey{}).(model.Actor)
	return actor
}
