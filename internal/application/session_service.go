package application

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"archie-shopify-app-core/internal/domain"
	"archie-shopify-app-core/internal/ports"

	"github.com/rs/zerolog"
)

// SessionService loads and removes sessions on behalf of request handlers
type SessionService struct {
	identity *IdentityService
	storage  ports.SessionStorage
	logger   zerolog.Logger
	now      func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(identity *IdentityService, storage ports.SessionStorage, logger zerolog.Logger) (*SessionService, error) {
	if storage == nil {
		return nil, fmt.Errorf("%w: session storage is required", domain.ErrConfiguration)
	}
	return &SessionService{
		identity: identity,
		storage:  storage,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// LoadCurrentSession returns the caller's session, or nil when the request carries no identity
// or the session does not exist
func (s *SessionService) LoadCurrentSession(ctx context.Context, r *http.Request, isOnline bool) (*domain.Session, error) {
	id, err := s.identity.CurrentSessionID(r, isOnline)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}

	session, err := s.storage.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSessionStorage, err)
	}
	return session, nil
}

// DeleteCurrentSession removes the caller's session
func (s *SessionService) DeleteCurrentSession(ctx context.Context, r *http.Request, isOnline bool) error {
	id, err := s.identity.CurrentSessionID(r, isOnline)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: no active session found", domain.ErrSessionNotFound)
	}

	if err := s.storage.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSessionStorage, err)
	}
	s.logger.Info().Str("sessionId", id).Msg("Deleted current session")
	return nil
}

// LoadOfflineSession returns the offline session of shop. Expired sessions are treated as
// missing unless includeExpired is set.
func (s *SessionService) LoadOfflineSession(ctx context.Context, shop string, includeExpired bool) (*domain.Session, error) {
	session, err := s.storage.Load(ctx, domain.OfflineSessionID(shop))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSessionStorage, err)
	}
	if session == nil {
		return nil, nil
	}
	if !includeExpired && session.IsExpired(s.now()) {
		return nil, nil
	}
	return session, nil
}

// DeleteOfflineSession removes the offline session of shop
func (s *SessionService) DeleteOfflineSession(ctx context.Context, shop string) error {
	if err := s.storage.Delete(ctx, domain.OfflineSessionID(shop)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSessionStorage, err)
	}
	return nil
}
