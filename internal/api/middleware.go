package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"gwi.com/botchat/internal/auth"
	"gwi.com/botchat/internal/logger"
	"gwi.com/botchat/internal/store"
)

type ctxKey struct{}

// requestLogger puts a logger tagged with the chi request id into the request context.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := logger.L.With(slog.String("request_id", middleware.GetReqID(r.Context())))
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), l)))
	})
}

// RequireUser resolves the session cookie to a user. Requests without a valid session are
// redirected to /login and any stale cookie is cleared.
func (h *APIHandler) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := h.sessions.UserID(r)
		if err != nil {
			h.redirectToLogin(w, r)
			return
		}

		user, err := h.accounts.GetUser(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				h.redirectToLogin(w, r)
				return
			}
			writeInternal(w, r, "load session user", err)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, user)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(slog.Int64("user_id", user.ID)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *APIHandler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie(auth.CookieName); err == nil {
		h.sessions.ClearCookie(w)
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// currentUser is only valid behind RequireUser.
func currentUser(r *http.Request) *store.User {
	user, _ := r.Context().Value(ctxKey{}).(*store.User)
	return user
}
