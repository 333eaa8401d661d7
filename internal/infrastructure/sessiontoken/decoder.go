package sessiontoken

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"archie-shopify-app-core/internal/domain"
	"archie-shopify-app-core/internal/ports"

	"github.com/golang-jwt/jwt/v5"
)

// Leeway is the clock skew tolerated on exp and nbf
const Leeway = 5 * time.Second

type claims struct {
	Dest string `json:"dest"`
	Sid  string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Decoder verifies App Bridge session tokens signed with the app secret
type Decoder struct {
	apiKey    string
	apiSecret []byte
	now       func() time.Time
}

// NewDecoder creates a new session token decoder
func NewDecoder(apiKey, apiSecret string) *Decoder {
	return &Decoder{
		apiKey:    apiKey,
		apiSecret: []byte(apiSecret),
		now:       time.Now,
	}
}

// Decode verifies signature, lifetime and audience of token and checks that it was issued
// for the shop it targets
func (d *Decoder) Decode(token string) (*ports.SessionTokenClaims, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c, func(*jwt.Token) (interface{}, error) {
		return d.apiSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(Leeway),
		jwt.WithAudience(d.apiKey),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(d.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse session token: %v", domain.ErrInvalidJWT, err)
	}

	shop := domain.ShopFromDest(c.Dest)
	if !domain.ValidShop(shop) {
		return nil, fmt.Errorf("%w: session token has an invalid dest %q", domain.ErrInvalidJWT, c.Dest)
	}

	issuer, err := url.Parse(c.Issuer)
	if err != nil || !strings.EqualFold(issuer.Hostname(), shop) {
		return nil, fmt.Errorf("%w: session token issuer does not match its dest", domain.ErrInvalidJWT)
	}

	return &ports.SessionTokenClaims{
		Issuer:    c.Issuer,
		Dest:      c.Dest,
		Audience:  d.apiKey,
		Subject:   c.Subject,
		SessionID: c.Sid,
		TokenID:   c.ID,
	}, nil
}
