package api

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"archie-shopify-app-core/internal/domain"
)

const (
	headerReauthorize    = "X-Shopify-API-Request-Failure-Reauthorize"
	headerReauthorizeURL = "X-Shopify-API-Request-Failure-Reauthorize-Url"
)

// RequireSession rejects requests without an active session and stores the session in the
// request context for the next handler
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := h.sessions.LoadCurrentSession(r.Context(), r, h.isOnline)
		if err != nil {
			h.logger.Warn().Err(err).Msg("Failed to resolve current session")
			h.reauthorize(w, r.URL.Query().Get("shop"))
			writeError(w, err)
			return
		}
		if session == nil || !session.IsActive(h.config.Scopes, time.Now()) {
			shop := r.URL.Query().Get("shop")
			if session != nil {
				shop = session.Shop
			}
			h.reauthorize(w, shop)
			writeError(w, fmt.Errorf("%w: no active session for this request", domain.ErrInvalidSession))
			return
		}

		next.ServeHTTP(w, r.WithContext(domain.WithSession(r.Context(), session)))
	})
}

// reauthorize tells App Bridge to restart OAuth. Only embedded apps understand these headers.
func (h *Handler) reauthorize(w http.ResponseWriter, shop string) {
	if !h.config.IsEmbeddedApp {
		return
	}
	w.Header().Set(headerReauthorize, "1")
	if domain.ValidShop(shop) {
		w.Header().Set(headerReauthorizeURL, "/auth?"+url.Values{"shop": {shop}}.Encode())
	}
}

// CurrentSession returns the public fields of the caller's session
func (h *Handler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	session := domain.SessionFromContext(r.Context())
	resp := map[string]interface{}{
		"shop":     session.Shop,
		"isOnline": session.IsOnline,
		"scope":    session.Scope,
	}
	if session.Expires != nil {
		resp["expires"] = session.Expires
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteSession logs the caller out
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.DeleteCurrentSession(r.Context(), r, h.isOnline); err != nil {
		h.logger.Error().Err(err).Msg("Failed to delete session")
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
