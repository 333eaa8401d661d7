package application

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"archie-shopify-app-core/internal/domain"
	"archie-shopify-app-core/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	oauthCookieLifetime = 60 * time.Second
	nonceBytes          = 32
)

// BeginResult is where to send the merchant to approve the app, and the cookie
// that carries the pending session id through the round trip
type BeginResult struct {
	Location string
	Cookie   *http.Cookie
}

// CallbackResult is the finalised session of a completed OAuth flow
type CallbackResult struct {
	Session *domain.Session
	Host    string
	Cookie  *http.Cookie
}

// OAuthService runs the authorization code grant against a shop
type OAuthService struct {
	config  domain.AppConfig
	storage ports.SessionStorage
	client  ports.ShopifyClient
	logger  zerolog.Logger
	now     func() time.Time
}

// NewOAuthService creates a new OAuth service
func NewOAuthService(
	config domain.AppConfig,
	storage ports.SessionStorage,
	client ports.ShopifyClient,
	logger zerolog.Logger,
) (*OAuthService, error) {
	if storage == nil {
		return nil, fmt.Errorf("%w: session storage is required", domain.ErrConfiguration)
	}
	if client == nil {
		return nil, fmt.Errorf("%w: shopify client is required", domain.ErrConfiguration)
	}
	return &OAuthService{
		config:  config,
		storage: storage,
		client:  client,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Begin stores a pending session for shop and returns the authorization redirect.
// Online sessions request a per-user token.
func (s *OAuthService) Begin(ctx context.Context, shop string, redirectPath string, isOnline bool) (*BeginResult, error) {
	if s.config.IsPrivateApp {
		return nil, fmt.Errorf("%w: cannot perform OAuth for private apps", domain.ErrConfiguration)
	}
	if !domain.ValidShop(shop) {
		return nil, fmt.Errorf("%w: invalid shop domain %q", domain.ErrMissingArgument, shop)
	}

	state, err := nonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	id := domain.OfflineSessionID(shop)
	if isOnline {
		id = uuid.NewString()
	}
	session := domain.NewSession(id, shop, state, isOnline)

	if err := s.storage.Store(ctx, session); err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to store OAuth session")
		return nil, fmt.Errorf("%w: OAuth session could not be saved: %v", domain.ErrSessionStorage, err)
	}

	grantOptions := ""
	if isOnline {
		grantOptions = "per-user"
	}
	query := url.Values{}
	query.Set("client_id", s.config.APIKey)
	query.Set("scope", s.config.Scopes.String())
	query.Set("redirect_uri", "https://"+s.config.HostName+redirectPath)
	query.Set("state", state)
	query.Set("grant_options[]", grantOptions)

	s.logger.Info().
		Str("shop", shop).
		Str("sessionId", session.ID).
		Bool("isOnline", isOnline).
		Msg("Started OAuth flow")

	return &BeginResult{
		Location: fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shop, query.Encode()),
		Cookie:   s.sessionCookie(session.ID, s.now().Add(oauthCookieLifetime)),
	}, nil
}

// Callback validates the redirect back from Shopify, exchanges the code for a token and
// persists the finalised session
func (s *OAuthService) Callback(ctx context.Context, r *http.Request) (*CallbackResult, error) {
	if s.config.IsPrivateApp {
		return nil, fmt.Errorf("%w: cannot perform OAuth for private apps", domain.ErrConfiguration)
	}

	query := r.URL.Query()
	shop := query.Get("shop")

	cookie, err := r.Cookie(domain.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, fmt.Errorf("%w: could not find an OAuth cookie for shop %s", domain.ErrCookieNotFound, shop)
	}

	session, err := s.storage.Load(ctx, cookie.Value)
	if err != nil {
		s.logger.Error().Err(err).Str("sessionId", cookie.Value).Msg("Failed to load OAuth session")
		return nil, fmt.Errorf("%w: %v", domain.ErrSessionStorage, err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: no session found for shop %s", domain.ErrSessionNotFound, shop)
	}

	if !s.validQuery(query, session) {
		s.logger.Warn().Str("shop", shop).Str("sessionId", session.ID).Msg("Rejected OAuth callback")
		return nil, domain.ErrInvalidCallback
	}

	token, err := s.client.ExchangeToken(ctx, session.Shop, query.Get("code"))
	if err != nil {
		s.logger.Error().Err(err).Str("shop", session.Shop).Msg("Failed to exchange token")
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamExchange, err)
	}

	session.AccessToken = token.AccessToken
	session.Scope = token.Scope

	if session.IsOnline {
		expires := s.now().Add(time.Duration(token.ExpiresIn) * time.Second)
		session.Expires = &expires
		info := &domain.OnlineAccessInfo{
			ExpiresIn:           token.ExpiresIn,
			AssociatedUserScope: token.AssociatedUserScope,
		}
		if token.AssociatedUser != nil {
			info.AssociatedUser = *token.AssociatedUser
		}
		session.OnlineAccessInfo = info

		// Embedded apps identify users through session tokens, so the cookie keyed
		// session is replaced by one keyed on the shop and user.
		if s.config.IsEmbeddedApp {
			if token.AssociatedUser == nil || token.AssociatedUser.ID == 0 {
				s.logger.Error().Str("shop", session.Shop).Msg("Online token response carried no associated user")
				return nil, fmt.Errorf("%w: online access token for %s has no associated user", domain.ErrUpstreamExchange, session.Shop)
			}
			userID := strconv.FormatInt(info.AssociatedUser.ID, 10)
			jwtSession := domain.CloneSession(session, domain.JWTSessionID(session.Shop, userID))

			if err := s.storage.Delete(ctx, session.ID); err != nil {
				s.logger.Error().Err(err).Str("sessionId", session.ID).Msg("Failed to delete OAuth session")
				return nil, fmt.Errorf("%w: OAuth session could not be deleted: %v", domain.ErrSessionStorage, err)
			}
			session = jwtSession
		}
	}

	if err := s.storage.Store(ctx, session); err != nil {
		s.logger.Error().Err(err).Str("sessionId", session.ID).Msg("Failed to store OAuth session")
		return nil, fmt.Errorf("%w: OAuth session could not be saved: %v", domain.ErrSessionStorage, err)
	}

	s.logger.Info().
		Str("shop", session.Shop).
		Str("sessionId", session.ID).
		Bool("isOnline", session.IsOnline).
		Msg("Completed OAuth flow")

	var cookieExpiry time.Time
	if s.config.IsEmbeddedApp {
		cookieExpiry = s.now()
	} else if session.Expires != nil {
		cookieExpiry = *session.Expires
	}
	result := &CallbackResult{
		Session: session,
		Host:    query.Get("host"),
		Cookie:  s.sessionCookie(session.ID, cookieExpiry),
	}
	if s.config.IsEmbeddedApp {
		result.Cookie.MaxAge = -1
	}
	return result, nil
}

// validQuery checks signature, shop and state together so callers cannot tell which failed
func (s *OAuthService) validQuery(query url.Values, session *domain.Session) bool {
	hmacOK := s.client.VerifyCallback(query)
	shopOK := domain.ValidShop(query.Get("shop"))
	stateOK := subtle.ConstantTimeCompare([]byte(query.Get("state")), []byte(session.State)) == 1
	return hmacOK && shopOK && stateOK
}

func (s *OAuthService) sessionCookie(id string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     domain.SessionCookieName,
		Value:    id,
		Path:     "/",
		Expires:  expires,
		SameSite: http.SameSiteLaxMode,
		Secure:   true,
	}
}

func nonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
