package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"archie-shopify-app-core/internal/domain"

	"github.com/rs/zerolog"
)

// LoggingHandler logs a short summary of order, product and customer events.
// Other topics are logged with their size only.
type LoggingHandler struct {
	logger zerolog.Logger
}

// NewLoggingHandler creates a new logging webhook handler
func NewLoggingHandler(logger zerolog.Logger) *LoggingHandler {
	return &LoggingHandler{
		logger: logger,
	}
}

// Handle processes a webhook event
func (h *LoggingHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var data map[string]interface{}
	if err := json.Unmarshal(event.Payload, &data); err != nil {
		return fmt.Errorf("failed to parse %s webhook payload: %w", event.Topic, err)
	}

	id, _ := data["id"].(float64)
	log := h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Int("payloadBytes", len(event.Payload))

	switch {
	case strings.HasPrefix(event.Topic, "ORDERS_"):
		orderNumber, _ := data["order_number"].(float64)
		totalPrice, _ := data["total_price"].(string)
		financialStatus, _ := data["financial_status"].(string)
		fulfillmentStatus, _ := data["fulfillment_status"].(string)
		log = log.
			Float64("orderId", id).
			Float64("orderNumber", orderNumber).
			Str("totalPrice", totalPrice).
			Str("financialStatus", financialStatus).
			Str("fulfillmentStatus", fulfillmentStatus)
	case strings.HasPrefix(event.Topic, "PRODUCTS_"):
		title, _ := data["title"].(string)
		handle, _ := data["handle"].(string)
		vendor, _ := data["vendor"].(string)
		log = log.
			Float64("productId", id).
			Str("title", title).
			Str("handle", handle).
			Str("vendor", vendor)
	case strings.HasPrefix(event.Topic, "CUSTOMERS_"):
		// no email or name: customer payloads are personal data
		state, _ := data["state"].(string)
		ordersCount, _ := data["orders_count"].(float64)
		log = log.
			Float64("customerId", id).
			Str("state", state).
			Float64("ordersCount", ordersCount)
	}

	log.Msg("Processing webhook event")
	return nil
}
