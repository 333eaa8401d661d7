package api

import (
	"net/http"
	"net/url"

	"archie-shopify-app-core/internal/domain"
	"archie-shopify-app-core/internal/infrastructure/metrics"
)

const callbackPath = "/auth/callback"

// Begin starts the OAuth flow for the shop in the query string
func (h *Handler) Begin(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		h.metrics.OAuthBegin.WithLabelValues(metrics.ResultFailure).Inc()
		http.Error(w, "shop parameter is required", http.StatusBadRequest)
		return
	}

	result, err := h.oauth.Begin(r.Context(), shop, callbackPath, h.isOnline)
	h.metrics.OAuthBegin.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		h.logger.Error().Err(err).Str("shop", shop).Msg("Failed to begin OAuth")
		writeError(w, err)
		return
	}

	http.SetCookie(w, result.Cookie)
	http.Redirect(w, r, result.Location, http.StatusFound)
}

// Callback completes the OAuth flow, subscribes the shop to the registered webhooks and
// sends the merchant back to the app
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	result, err := h.oauth.Callback(r.Context(), r)
	h.metrics.OAuthCallback.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		h.logger.Error().Err(err).Str("shop", r.URL.Query().Get("shop")).Msg("OAuth callback failed")
		writeError(w, err)
		return
	}

	session := result.Session
	registered, err := h.webhooks.RegisterAll(r.Context(), session.Shop, session.AccessToken, domain.DeliveryHTTP)
	for topic, res := range registered {
		label := metrics.ResultSuccess
		if !res.Success {
			label = metrics.ResultFailure
		}
		h.metrics.WebhookRegistration.WithLabelValues(topic, label).Inc()
	}
	if err != nil {
		h.logger.Error().Err(err).Str("shop", session.Shop).Msg("Failed to register webhooks")
	}

	http.SetCookie(w, result.Cookie)

	query := url.Values{}
	query.Set("shop", session.Shop)
	if result.Host != "" {
		query.Set("host", result.Host)
	}
	http.Redirect(w, r, "/?"+query.Encode(), http.StatusFound)
}
