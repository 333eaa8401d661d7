package shopify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"archie-shopify-app-core/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

type client struct {
	app        goshopify.App
	apiVersion string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures the client adapter
type Option func(*client)

// WithHTTPClient sets the HTTP client used for every call to a shop
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new Shopify client adapter
func NewClient(apiKey, apiSecret, apiVersion string, logger zerolog.Logger, opts ...Option) ports.ShopifyClient {
	c := &client{
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		apiVersion: apiVersion,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// createClient is a helper to create a goshopify client
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	opts := []goshopify.Option{}
	if c.apiVersion != "" {
		opts = append(opts, goshopify.WithVersion(c.apiVersion))
	}
	if c.httpClient != nil {
		opts = append(opts, goshopify.WithHTTPClient(c.httpClient))
	}
	client, err := goshopify.NewClient(c.app, shopDomain, accessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// VerifyCallback checks the hmac of an OAuth redirect query
func (c *client) VerifyCallback(query url.Values) bool {
	ok, err := c.app.VerifyAuthorizationURL(&url.URL{RawQuery: query.Encode()})
	if err != nil {
		c.logger.Debug().Err(err).Msg("OAuth callback hmac could not be verified")
		return false
	}
	return ok
}

// ExchangeToken trades an authorization code for an access token. The full response is
// kept because online tokens carry their expiry and associated user.
func (c *client) ExchangeToken(ctx context.Context, shop string, code string) (*ports.AccessTokenResponse, error) {
	client, err := c.createClient(shop, "")
	if err != nil {
		return nil, err
	}

	body := struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
		Code         string `json:"code"`
	}{
		ClientID:     c.app.ApiKey,
		ClientSecret: c.app.ApiSecret,
		Code:         code,
	}

	req, err := client.NewRequest(ctx, http.MethodPost, "admin/oauth/access_token", body, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}

	token := new(ports.AccessTokenResponse)
	if err := client.Do(req, token); err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("failed to exchange token: response carried no access token")
	}

	c.logger.Debug().
		Str("shop", shop).
		Str("scope", token.Scope).
		Bool("online", token.AssociatedUser != nil).
		Msg("Exchanged OAuth code for access token")

	return token, nil
}

// GraphQL runs a query against the shop's Admin API and decodes its data into resp
func (c *client) GraphQL(ctx context.Context, shop, accessToken, query string, variables map[string]interface{}, resp interface{}) error {
	client, err := c.createClient(shop, accessToken)
	if err != nil {
		return err
	}
	var vars interface{}
	if len(variables) > 0 {
		vars = variables
	}
	if err := client.GraphQL.Query(ctx, query, vars, resp); err != nil {
		return fmt.Errorf("graphql request to %s failed: %w", shop, err)
	}
	return nil
}
