package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"archie-shopify-app-core/internal/domain"

	"github.com/rs/zerolog"
)

// OfflineSessionRemover deletes the offline session of a shop
type OfflineSessionRemover interface {
	DeleteOfflineSession(ctx context.Context, shop string) error
}

// AppUninstalledHandler handles app uninstalled webhook events
type AppUninstalledHandler struct {
	logger   zerolog.Logger
	sessions OfflineSessionRemover
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(logger zerolog.Logger, sessions OfflineSessionRemover) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		logger:   logger,
		sessions: sessions,
	}
}

// Handle drops the shop's offline token once the merchant removes the app
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var shopData struct {
		Domain          string `json:"domain"`
		MyshopifyDomain string `json:"myshopify_domain"`
	}
	if err := json.Unmarshal(event.Payload, &shopData); err != nil {
		return fmt.Errorf("failed to parse app uninstalled webhook payload: %w", err)
	}

	shop := event.Shop
	if shop == "" {
		shop = shopData.MyshopifyDomain
	}
	if shop == "" {
		shop = shopData.Domain
	}
	if shop == "" {
		return fmt.Errorf("%w: app uninstalled webhook carries no shop", domain.ErrMissingArgument)
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", shop).
		Msg("Processing app uninstalled webhook event")

	if err := h.sessions.DeleteOfflineSession(ctx, shop); err != nil {
		return fmt.Errorf("failed to delete offline session for %s: %w", shop, err)
	}

	h.logger.Info().Str("shop", shop).Msg("App uninstalled - offline session removed")
	return nil
}
