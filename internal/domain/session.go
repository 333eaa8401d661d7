package domain

import (
	"time"
)

const (
	// SessionCookieName is the cookie carrying the session id between OAuth begin and callback
	SessionCookieName = "shopify_app_session"

	offlineSessionPrefix = "offline_"
)

// AssociatedUser is the shop staff member an online access token was issued for
type AssociatedUser struct {
	ID            int64  `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	AccountOwner  bool   `json:"account_owner"`
	Locale        string `json:"locale"`
	Collaborator  bool   `json:"collaborator"`
}

// OnlineAccessInfo holds the per-user part of an online token exchange response
type OnlineAccessInfo struct {
	ExpiresIn           int            `json:"expires_in"`
	AssociatedUserScope string         `json:"associated_user_scope"`
	AssociatedUser      AssociatedUser `json:"associated_user"`
}

// Session represents one authenticated context for a shop, access mode and optionally a user.
// A session is pending until the OAuth callback fills in the token fields.
type Session struct {
	ID               string            `json:"id"`
	Shop             string            `json:"shop"`
	State            string            `json:"state"`
	IsOnline         bool              `json:"is_online"`
	Scope            string            `json:"scope,omitempty"`
	AccessToken      string            `json:"access_token,omitempty"`
	Expires          *time.Time        `json:"expires,omitempty"`
	OnlineAccessInfo *OnlineAccessInfo `json:"online_access_info,omitempty"`
}

// NewSession creates a pending session
func NewSession(id, shop, state string, isOnline bool) *Session {
	return &Session{
		ID:       id,
		Shop:     shop,
		State:    state,
		IsOnline: isOnline,
	}
}

// CloneSession returns a copy of session stored under newID. The source session is not modified.
func CloneSession(session *Session, newID string) *Session {
	clone := *session
	clone.ID = newID
	if session.Expires != nil {
		expires := *session.Expires
		clone.Expires = &expires
	}
	if session.OnlineAccessInfo != nil {
		info := *session.OnlineAccessInfo
		clone.OnlineAccessInfo = &info
	}
	return &clone
}

// IsActive reports whether the session holds a usable token for the configured scopes
func (s *Session) IsActive(scopes Scopes, now time.Time) bool {
	if s.AccessToken == "" {
		return false
	}
	if !scopes.Equal(ParseScopes(s.Scope)) {
		return false
	}
	return s.Expires == nil || s.Expires.After(now)
}

// IsExpired reports whether the session carries an expiry that has passed
func (s *Session) IsExpired(now time.Time) bool {
	return s.Expires != nil && !s.Expires.After(now)
}

// OfflineSessionID builds the deterministic id of a shop's offline session
func OfflineSessionID(shop string) string {
	return offlineSessionPrefix + shop
}

// JWTSessionID builds the id of an online session owned by an embedded app user
func JWTSessionID(shop, userID string) string {
	return shop + "_" + userID
}
