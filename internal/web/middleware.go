package web

import (
	"context"
	"net/http"
	"strings"
)

type contextKey int

const (
	sessionKey contextKey = iota
	ownerKey
)

func withSession(ctx context.Context, s *Session) context.Context {
	ctx = context.WithValue(ctx, sessionKey, s)
	return context.WithValue(ctx, ownerKey, s.OwnerID)
}

// sessionFrom returns the cookie session, nil for bearer-token requests.
func sessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}

func ownerFrom(ctx context.Context) string {
	id, _ := ctx.Value(ownerKey).(string)
	return id
}

// requireSession redirects anonymous visitors to sign in.
func (h *Handlers) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := h.sessions.GetFromRequest(r)
		if session == nil {
			http.Redirect(w, r, "/auth/login", http.StatusTemporaryRedirect)
			return
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), session)))
	})
}

// requireSocketSession rejects anonymous websocket upgrades with 401.
func (h *Handlers) requireSocketSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := h.sessions.GetFromRequest(r)
		if session == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), session)))
	})
}

// requireOwner accepts a session cookie or an "Authorization: Bearer"
// token and answers 401 otherwise.
func (h *Handlers) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session := h.sessions.GetFromRequest(r); session != nil {
			next.ServeHTTP(w, r.WithContext(withSession(r.Context(), session)))
			return
		}

		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if ok && raw != "" {
			ownerID, err := h.tokens.Verify(raw)
			if err == nil {
				ctx := context.WithValue(r.Context(), ownerKey, ownerID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			h.log.Debugw("rejected bearer token", "error", err)
		}

		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
	})
}
