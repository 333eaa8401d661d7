package ports

import (
	"context"
	"net/url"

	"archie-shopify-app-core/internal/domain"
)

// AccessTokenResponse is the body returned by the OAuth access token endpoint.
// The online fields are only present for per-user tokens.
type AccessTokenResponse struct {
	AccessToken         string                 `json:"access_token"`
	Scope               string                 `json:"scope"`
	ExpiresIn           int                    `json:"expires_in,omitempty"`
	AssociatedUserScope string                 `json:"associated_user_scope,omitempty"`
	AssociatedUser      *domain.AssociatedUser `json:"associated_user,omitempty"`
}

// ShopifyClient defines the Shopify API operations the auth core depends on
type ShopifyClient interface {
	// VerifyCallback checks the hmac parameter of an OAuth callback query
	VerifyCallback(query url.Values) bool

	// ExchangeToken trades an authorization code for an access token
	ExchangeToken(ctx context.Context, shop string, code string) (*AccessTokenResponse, error)

	// GraphQL runs an Admin API GraphQL document and decodes its data into resp
	GraphQL(ctx context.Context, shop string, accessToken string, query string, variables map[string]interface{}, resp interface{}) error
}

// SessionTokenClaims are the claims of an App Bridge session token
type SessionTokenClaims struct {
	Issuer    string
	Dest      string
	Audience  string
	Subject   string
	SessionID string
	TokenID   string
}

// SessionTokenDecoder verifies App Bridge session tokens
type SessionTokenDecoder interface {
	Decode(token string) (*SessionTokenClaims, error)
}
