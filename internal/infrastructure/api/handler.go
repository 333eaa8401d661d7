package api

import (
	"encoding/json"
	"net/http"

	"archie-shopify-app-core/internal/application"
	"archie-shopify-app-core/internal/domain"
	"archie-shopify-app-core/internal/infrastructure/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler exposes the OAuth, session and webhook services over HTTP
type Handler struct {
	config   domain.AppConfig
	isOnline bool
	oauth    *application.OAuthService
	sessions *application.SessionService
	webhooks *application.WebhookService
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	config domain.AppConfig,
	isOnline bool,
	oauth *application.OAuthService,
	sessions *application.SessionService,
	webhooks *application.WebhookService,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		config:   config,
		isOnline: isOnline,
		oauth:    oauth,
		sessions: sessions,
		webhooks: webhooks,
		metrics:  m,
		logger:   logger,
	}
}

// Mount registers the auth, session and webhook routes on r
func (h *Handler) Mount(r chi.Router, webhookPath string) {
	r.Get("/auth", h.Begin)
	r.Get("/auth/callback", h.Callback)
	r.Post(webhookPath, h.Webhook)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireSession)
		r.Get("/session", h.CurrentSession)
		r.Delete("/session", h.DeleteSession)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
