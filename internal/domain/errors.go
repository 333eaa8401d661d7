package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the auth and webhook core. Callers map them to
// transport responses with errors.Is.
var (
	ErrConfiguration    = errors.New("configuration error")
	ErrMissingArgument  = errors.New("missing required argument")
	ErrCookieNotFound   = errors.New("oauth cookie not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSession   = errors.New("invalid session")
	ErrInvalidCallback  = errors.New("invalid oauth callback")
	ErrSessionStorage   = errors.New("session storage error")
	ErrUpstreamExchange = errors.New("token exchange failed")
	ErrMissingToken     = errors.New("missing bearer token")
	ErrInvalidJWT       = errors.New("invalid session token")
	ErrInvalidWebhook   = errors.New("invalid webhook")
)

// Webhook rejection reasons. All of them match ErrInvalidWebhook.
var (
	ErrWebhookEmptyBody         = fmt.Errorf("%w: no body was received", ErrInvalidWebhook)
	ErrWebhookMissingHeaders    = fmt.Errorf("%w: missing required headers", ErrInvalidWebhook)
	ErrWebhookSignature         = fmt.Errorf("%w: signature mismatch", ErrInvalidWebhook)
	ErrWebhookUnregisteredTopic = fmt.Errorf("%w: no handler registered", ErrInvalidWebhook)
)
