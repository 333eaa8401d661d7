package application

import (
	"fmt"
	"net/http"
	"regexp"

	"archie-shopify-app-core/internal/domain"
	"archie-shopify-app-core/internal/ports"
)

var bearerPattern = regexp.MustCompile(`^Bearer (.+)$`)

// IdentityService works out which session a request belongs to.
// It never reads session storage.
type IdentityService struct {
	config  domain.AppConfig
	decoder ports.SessionTokenDecoder
}

// NewIdentityService creates a new identity service
func NewIdentityService(config domain.AppConfig, decoder ports.SessionTokenDecoder) *IdentityService {
	return &IdentityService{
		config:  config,
		decoder: decoder,
	}
}

// CurrentSessionID returns the session id of the caller, or "" when there is none.
// Embedded apps are identified by their session token; the cookie is the fallback for
// non-embedded apps and for the first page load of an embedded one.
func (s *IdentityService) CurrentSessionID(r *http.Request, isOnline bool) (string, error) {
	if s.config.IsEmbeddedApp {
		if header := r.Header.Get("Authorization"); header != "" {
			matches := bearerPattern.FindStringSubmatch(header)
			if matches == nil {
				return "", fmt.Errorf("%w: missing Bearer token in authorization header", domain.ErrMissingToken)
			}
			if s.decoder == nil {
				return "", fmt.Errorf("%w: no session token decoder configured", domain.ErrConfiguration)
			}

			claims, err := s.decoder.Decode(matches[1])
			if err != nil {
				return "", err
			}

			shop := domain.ShopFromDest(claims.Dest)
			if isOnline {
				return domain.JWTSessionID(shop, claims.Subject), nil
			}
			return domain.OfflineSessionID(shop), nil
		}
	}

	cookie, err := r.Cookie(domain.SessionCookieName)
	if err != nil {
		return "", nil
	}
	return cookie.Value, nil
}
