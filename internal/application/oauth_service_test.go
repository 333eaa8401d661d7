package application

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"archie-shopify-app-core/internal/domain"
	"archie-shopify-app-core/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testShop = "shop1.myshopify.io"

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func testConfig(embedded bool) domain.AppConfig {
	return domain.AppConfig{
		APIKey:        "api-key",
		APISecretKey:  "api-secret",
		Scopes:        domain.ParseScopes("read_orders,write_products"),
		HostName:      "app.example.com",
		APIVersion:    "2024-01",
		IsEmbeddedApp: embedded,
	}
}

func newTestOAuthService(t *testing.T, cfg domain.AppConfig) (*OAuthService, *fakeStorage, *fakeShopifyClient) {
	t.Helper()
	storage := newFakeStorage()
	client := newFakeShopifyClient()
	svc, err := NewOAuthService(cfg, storage, client, zerolog.Nop())
	require.NoError(t, err)
	svc.now = func() time.Time { return fixedNow }
	return svc, storage, client
}

func callbackRequest(sessionID string, query url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?"+query.Encode(), nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: domain.SessionCookieName, Value: sessionID})
	}
	return req
}

func callbackQuery(state string) url.Values {
	return url.Values{
		"shop":      {testShop},
		"code":      {"auth-code"},
		"state":     {state},
		"host":      {"aG9zdA"},
		"timestamp": {"1714557600"},
		"hmac":      {"signature"},
	}
}

func TestNewOAuthServiceRequiresDependencies(t *testing.T) {
	_, err := NewOAuthService(testConfig(true), nil, newFakeShopifyClient(), zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewOAuthService(testConfig(true), newFakeStorage(), nil, zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestBeginOnline(t *testing.T) {
	svc, storage, _ := newTestOAuthService(t, testConfig(true))

	result, err := svc.Begin(context.Background(), testShop, "/auth/callback", true)
	require.NoError(t, err)

	location, err := url.Parse(result.Location)
	require.NoError(t, err)
	assert.Equal(t, "https", location.Scheme)
	assert.Equal(t, testShop, location.Host)
	assert.Equal(t, "/admin/oauth/authorize", location.Path)

	query := location.Query()
	assert.Equal(t, "api-key", query.Get("client_id"))
	assert.Equal(t, "read_orders,write_products", query.Get("scope"))
	assert.Equal(t, "https://app.example.com/auth/callback", query.Get("redirect_uri"))
	assert.Equal(t, "per-user", query.Get("grant_options[]"))
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), query.Get("state"))

	require.NotNil(t, result.Cookie)
	assert.Equal(t, domain.SessionCookieName, result.Cookie.Name)
	assert.Equal(t, fixedNow.Add(60*time.Second), result.Cookie.Expires)
	assert.True(t, result.Cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, result.Cookie.SameSite)

	stored := storage.get(result.Cookie.Value)
	require.NotNil(t, stored)
	assert.Equal(t, testShop, stored.Shop)
	assert.True(t, stored.IsOnline)
	assert.Equal(t, query.Get("state"), stored.State)
	assert.Empty(t, stored.AccessToken)
	assert.False(t, strings.HasPrefix(stored.ID, "offline_"))
}

func TestBeginOffline(t *testing.T) {
	svc, storage, _ := newTestOAuthService(t, testConfig(false))

	result, err := svc.Begin(context.Background(), testShop, "/auth/callback", false)
	require.NoError(t, err)

	assert.Equal(t, "offline_"+testShop, result.Cookie.Value)
	location, err := url.Parse(result.Location)
	require.NoError(t, err)
	assert.True(t, location.Query().Has("grant_options[]"))
	assert.Empty(t, location.Query().Get("grant_options[]"))
	assert.NotNil(t, storage.get("offline_"+testShop))
}

func TestBeginStatesAreUnique(t *testing.T) {
	svc, _, _ := newTestOAuthService(t, testConfig(true))

	first, err := svc.Begin(context.Background(), testShop, "/auth/callback", true)
	require.NoError(t, err)
	second, err := svc.Begin(context.Background(), testShop, "/auth/callback", true)
	require.NoError(t, err)

	assert.NotEqual(t, first.Cookie.Value, second.Cookie.Value)
	firstURL, _ := url.Parse(first.Location)
	secondURL, _ := url.Parse(second.Location)
	assert.NotEqual(t, firstURL.Query().Get("state"), secondURL.Query().Get("state"))
}

func TestBeginErrors(t *testing.T) {
	t.Run("private app", func(t *testing.T) {
		cfg := testConfig(true)
		cfg.IsPrivateApp = true
		svc, _, _ := newTestOAuthService(t, cfg)

		_, err := svc.Begin(context.Background(), testShop, "/auth/callback", true)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("invalid shop", func(t *testing.T) {
		svc, storage, _ := newTestOAuthService(t, testConfig(true))

		_, err := svc.Begin(context.Background(), "evil.example.com", "/auth/callback", true)
		assert.ErrorIs(t, err, domain.ErrMissingArgument)
		assert.Empty(t, storage.stored)
	})

	t.Run("storage failure", func(t *testing.T) {
		svc, storage, _ := newTestOAuthService(t, testConfig(true))
		storage.storeErr = errBoom

		result, err := svc.Begin(context.Background(), testShop, "/auth/callback", true)
		assert.ErrorIs(t, err, domain.ErrSessionStorage)
		assert.Nil(t, result)
	})
}

func TestCallbackOffline(t *testing.T) {
	svc, storage, client := newTestOAuthService(t, testConfig(false))

	begin, err := svc.Begin(context.Background(), testShop, "/auth/callback", false)
	require.NoError(t, err)
	state := storage.get(begin.Cookie.Value).State

	result, err := svc.Callback(context.Background(), callbackRequest(begin.Cookie.Value, callbackQuery(state)))
	require.NoError(t, err)

	assert.Equal(t, []string{testShop + ":auth-code"}, client.exchanges)
	assert.Equal(t, "offline_"+testShop, result.Session.ID)
	assert.Equal(t, "shpat_token", result.Session.AccessToken)
	assert.Equal(t, "write_products,read_orders", result.Session.Scope)
	assert.Nil(t, result.Session.Expires)
	assert.Nil(t, result.Session.OnlineAccessInfo)
	assert.Equal(t, "aG9zdA", result.Host)

	stored := storage.get("offline_" + testShop)
	require.NotNil(t, stored)
	assert.Equal(t, "shpat_token", stored.AccessToken)
	assert.True(t, stored.IsActive(svc.config.Scopes, fixedNow))

	assert.Equal(t, "offline_"+testShop, result.Cookie.Value)
	assert.True(t, result.Cookie.Expires.IsZero())
}

func onlineToken() *ports.AccessTokenResponse {
	return &ports.AccessTokenResponse{
		AccessToken:         "shpua_token",
		Scope:               "write_products,read_orders",
		ExpiresIn:           86399,
		AssociatedUserScope: "write_products",
		AssociatedUser: &domain.AssociatedUser{
			ID:           902541635,
			Email:        "owner@example.com",
			AccountOwner: true,
		},
	}
}

func TestCallbackEmbeddedOnlineMigratesSession(t *testing.T) {
	svc, storage, client := newTestOAuthService(t, testConfig(true))
	client.token = onlineToken()

	begin, err := svc.Begin(context.Background(), testShop, "/auth/callback", true)
	require.NoError(t, err)
	cookieID := begin.Cookie.Value
	state := storage.get(cookieID).State

	result, err := svc.Callback(context.Background(), callbackRequest(cookieID, callbackQuery(state)))
	require.NoError(t, err)

	jwtID := testShop + "_902541635"
	assert.Equal(t, jwtID, result.Session.ID)
	assert.Nil(t, storage.get(cookieID))
	assert.Equal(t, []string{cookieID}, storage.deleted)

	stored := storage.get(jwtID)
	require.NotNil(t, stored)
	assert.Equal(t, "shpua_token", stored.AccessToken)
	require.NotNil(t, stored.Expires)
	assert.Equal(t, fixedNow.Add(86399*time.Second), *stored.Expires)
	require.NotNil(t, stored.OnlineAccessInfo)
	assert.Equal(t, int64(902541635), stored.OnlineAccessInfo.AssociatedUser.ID)
	assert.Equal(t, "write_products", stored.OnlineAccessInfo.AssociatedUserScope)

	assert.Equal(t, jwtID, result.Cookie.Value)
	assert.Equal(t, -1, result.Cookie.MaxAge)
	assert.Equal(t, fixedNow, result.Cookie.Expires)
}

func TestCallbackNonEmbeddedOnlineKeepsSessionID(t *testing.T) {
	svc, storage, client := newTestOAuthService(t, testConfig(false))
	client.token = onlineToken()

	begin, err := svc.Begin(context.Background(), testShop, "/auth/callback", true)
	require.NoError(t, err)
	state := storage.get(begin.Cookie.Value).State

	result, err := svc.Callback(context.Background(), callbackRequest(begin.Cookie.Value, callbackQuery(state)))
	require.NoError(t, err)

	assert.Equal(t, begin.Cookie.Value, result.Session.ID)
	assert.Empty(t, storage.deleted)
	assert.Equal(t, fixedNow.Add(86399*time.Second), result.Cookie.Expires)
}

func TestCallbackRejectsTamperedState(t *testing.T) {
	svc, storage, client := newTestOAuthService(t, testConfig(true))

	begin, err := svc.Begin(context.Background(), testShop, "/auth/callback", true)
	require.NoError(t, err)

	result, err := svc.Callback(context.Background(), callbackRequest(begin.Cookie.Value, callbackQuery("forged-state")))
	assert.ErrorIs(t, err, domain.ErrInvalidCallback)
	assert.Nil(t, result)
	assert.Empty(t, client.exchanges)

	stored := storage.get(begin.Cookie.Value)
	require.NotNil(t, stored)
	assert.Empty(t, stored.AccessToken)
}

func TestCallbackRejectsBadSignatureAndShop(t *testing.T) {
	t.Run("hmac", func(t *testing.T) {
		svc, storage, client := newTestOAuthService(t, testConfig(true))
		client.callbackValid = false

		begin, err := svc.Begin(context.Background(), testShop, "/auth/callback", true)
		require.NoError(t, err)
		state := storage.get(begin.Cookie.Value).State

		_, err = svc.Callback(context.Background(), callbackRequest(begin.Cookie.Value, callbackQuery(state)))
		assert.ErrorIs(t, err, domain.ErrInvalidCallback)
		assert.Empty(t, client.exchanges)
	})

	t.Run("shop", func(t *testing.T) {
		svc, storage, client := newTestOAuthService(t, testConfig(true))

		begin, err := svc.Begin(context.Background(), testShop, "/auth/callback", true)
		require.NoError(t, err)
		query := callbackQuery(storage.get(begin.Cookie.Value).State)
		query.Set("shop", "evil.example.com")

		_, err = svc.Callback(context.Background(), callbackRequest(begin.Cookie.Value, query))
		assert.ErrorIs(t, err, domain.ErrInvalidCallback)
		assert.Empty(t, client.exchanges)
	})
}

func TestCallbackErrors(t *testing.T) {
	t.Run("missing cookie", func(t *testing.T) {
		svc, storage, client := newTestOAuthService(t, testConfig(true))

		begin, err := svc.Begin(context.Background(), testShop, "/auth/callback", true)
		require.NoError(t, err)
		state := storage.get(begin.Cookie.Value).State

		_, err = svc.Callback(context.Background(), callbackRequest("", callbackQuery(state)))
		assert.ErrorIs(t, err, domain.ErrCookieNotFound)
		assert.Empty(t, client.exchanges)

		pending := storage.get(begin.Cookie.Value)
		require.NotNil(t, pending)
		assert.Empty(t, pending.AccessToken)
		assert.Equal(t, []string{begin.Cookie.Value}, storage.stored)
	})

	t.Run("online token without associated user", func(t *testing.T) {
		svc, storage, client := newTestOAuthService(t, testConfig(true))
		client.token = onlineToken()
		client.token.AssociatedUser = nil

		begin, err := svc.Begin(context.Background(), testShop, "/auth/callback", true)
		require.NoError(t, err)
		state := storage.get(begin.Cookie.Value).State

		_, err = svc.Callback(context.Background(), callbackRequest(begin.Cookie.Value, callbackQuery(state)))
		assert.ErrorIs(t, err, domain.ErrUpstreamExchange)
		assert.Empty(t, storage.deleted)
		assert.NotNil(t, storage.get(begin.Cookie.Value))
		assert.Nil(t, storage.get(testShop+"_0"))
	})

	t.Run("unknown session", func(t *testing.T) {
		svc, _, _ := newTestOAuthService(t, testConfig(true))

		_, err := svc.Callback(context.Background(), callbackRequest("missing", callbackQuery("state")))
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("load failure", func(t *testing.T) {
		svc, storage, _ := newTestOAuthService(t, testConfig(true))
		storage.loadErr = errBoom

		_, err := svc.Callback(context.Background(), callbackRequest("any", callbackQuery("state")))
		assert.ErrorIs(t, err, domain.ErrSessionStorage)
	})

	t.Run("exchange failure", func(t *testing.T) {
		svc, storage, client := newTestOAuthService(t, testConfig(false))
		client.exchangeErr = errBoom

		begin, err := svc.Begin(context.Background(), testShop, "/auth/callback", false)
		require.NoError(t, err)
		state := storage.get(begin.Cookie.Value).State

		_, err = svc.Callback(context.Background(), callbackRequest(begin.Cookie.Value, callbackQuery(state)))
		assert.ErrorIs(t, err, domain.ErrUpstreamExchange)
		assert.Empty(t, storage.get(begin.Cookie.Value).AccessToken)
	})

	t.Run("delete failure aborts migration", func(t *testing.T) {
		svc, storage, client := newTestOAuthService(t, testConfig(true))
		client.token = onlineToken()

		begin, err := svc.Begin(context.Background(), testShop, "/auth/callback", true)
		require.NoError(t, err)
		state := storage.get(begin.Cookie.Value).State
		storage.deleteErr = errBoom

		_, err = svc.Callback(context.Background(), callbackRequest(begin.Cookie.Value, callbackQuery(state)))
		assert.ErrorIs(t, err, domain.ErrSessionStorage)
		assert.Nil(t, storage.get(testShop+"_902541635"))
	})

	t.Run("final store failure", func(t *testing.T) {
		svc, storage, _ := newTestOAuthService(t, testConfig(false))

		begin, err := svc.Begin(context.Background(), testShop, "/auth/callback", false)
		require.NoError(t, err)
		state := storage.get(begin.Cookie.Value).State
		storage.storeErr = errBoom

		_, err = svc.Callback(context.Background(), callbackRequest(begin.Cookie.Value, callbackQuery(state)))
		assert.ErrorIs(t, err, domain.ErrSessionStorage)
	})

	t.Run("private app", func(t *testing.T) {
		cfg := testConfig(true)
		cfg.IsPrivateApp = true
		svc, _, _ := newTestOAuthService(t, cfg)

		_, err := svc.Callback(context.Background(), callbackRequest("any", callbackQuery("state")))
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
}
