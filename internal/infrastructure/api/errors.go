package api

import (
	"errors"
	"net/http"

	"archie-shopify-app-core/internal/domain"
)

// statusFor maps an error kind to the HTTP status reported to the caller
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrWebhookEmptyBody),
		errors.Is(err, domain.ErrWebhookMissingHeaders):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidWebhook):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrMissingArgument),
		errors.Is(err, domain.ErrCookieNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrInvalidCallback):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMissingToken),
		errors.Is(err, domain.ErrInvalidJWT),
		errors.Is(err, domain.ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUpstreamExchange):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err with its mapped status. Internal failures get a generic message.
func writeError(w http.ResponseWriter, err error) int {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError || status == http.StatusBadGateway {
		message = http.StatusText(status)
	}
	http.Error(w, message, status)
	return status
}
