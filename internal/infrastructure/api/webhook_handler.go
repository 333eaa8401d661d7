package api

import (
	"errors"
	"io"
	"net/http"

	"archie-shopify-app-core/internal/domain"
	"archie-shopify-app-core/internal/infrastructure/metrics"
)

// maxWebhookBodyBytes caps the payload read from a delivery
const maxWebhookBodyBytes = 5 << 20

// Webhook verifies and dispatches a webhook delivery
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if !h.webhooks.Registry().IsWebhookPath(r.URL.Path) {
		h.metrics.WebhookReceived.WithLabelValues(metrics.TopicUnverified, metrics.ResultFailure).Inc()
		http.Error(w, "no webhook handler is registered for this path", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.metrics.WebhookReceived.WithLabelValues(metrics.TopicUnverified, metrics.ResultFailure).Inc()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "webhook payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.logger.Error().Err(err).Msg("Failed to read webhook payload")
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	err = h.webhooks.Process(r.Context(), r.Header, body)

	// The topic header is caller controlled until the signature and registry checks pass
	topic := metrics.TopicUnverified
	if !errors.Is(err, domain.ErrInvalidWebhook) {
		topic = domain.NormalizeTopic(r.Header.Get(domain.HeaderTopic))
	}
	h.metrics.WebhookReceived.WithLabelValues(topic, metrics.Result(err)).Inc()

	if err != nil {
		status := writeError(w, err)
		h.logger.Warn().
			Err(err).
			Str("topic", r.Header.Get(domain.HeaderTopic)).
			Str("shop", r.Header.Get(domain.HeaderDomain)).
			Int("status", status).
			Msg("Webhook rejected")
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}
