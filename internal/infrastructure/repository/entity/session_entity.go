package entity

import (
	"time"

	"archie-shopify-app-core/internal/domain"
)

// MongoAssociatedUserDoc represents the user an online session belongs to
type MongoAssociatedUserDoc struct {
	ID            int64  `bson:"id"`
	FirstName     string `bson:"firstName"`
	LastName      string `bson:"lastName"`
	Email         string `bson:"email"`
	EmailVerified bool   `bson:"emailVerified"`
	AccountOwner  bool   `bson:"accountOwner"`
	Locale        string `bson:"locale"`
	Collaborator  bool   `bson:"collaborator"`
}

// MongoOnlineAccessInfoDoc represents the online part of a session
type MongoOnlineAccessInfoDoc struct {
	ExpiresIn           int                    `bson:"expiresIn"`
	AssociatedUserScope string                 `bson:"associatedUserScope"`
	AssociatedUser      MongoAssociatedUserDoc `bson:"associatedUser"`
}

// MongoSessionDoc represents a session in MongoDB. The session id is the document id.
type MongoSessionDoc struct {
	ID               string                    `bson:"_id"`
	Shop             string                    `bson:"shop"`
	State            string                    `bson:"state"`
	IsOnline         bool                      `bson:"isOnline"`
	Scope            string                    `bson:"scope,omitempty"`
	AccessToken      string                    `bson:"accessToken,omitempty"`
	Expires          *time.Time                `bson:"expires,omitempty"`
	OnlineAccessInfo *MongoOnlineAccessInfoDoc `bson:"onlineAccessInfo,omitempty"`
	UpdatedAt        time.Time                 `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoSessionDoc) ToDomain() *domain.Session {
	session := &domain.Session{
		ID:          d.ID,
		Shop:        d.Shop,
		State:       d.State,
		IsOnline:    d.IsOnline,
		Scope:       d.Scope,
		AccessToken: d.AccessToken,
	}
	if d.Expires != nil {
		expires := d.Expires.UTC()
		session.Expires = &expires
	}
	if info := d.OnlineAccessInfo; info != nil {
		session.OnlineAccessInfo = &domain.OnlineAccessInfo{
			ExpiresIn:           info.ExpiresIn,
			AssociatedUserScope: info.AssociatedUserScope,
			AssociatedUser: domain.AssociatedUser{
				ID:            info.AssociatedUser.ID,
				FirstName:     info.AssociatedUser.FirstName,
				LastName:      info.AssociatedUser.LastName,
				Email:         info.AssociatedUser.Email,
				EmailVerified: info.AssociatedUser.EmailVerified,
				AccountOwner:  info.AssociatedUser.AccountOwner,
				Locale:        info.AssociatedUser.Locale,
				Collaborator:  info.AssociatedUser.Collaborator,
			},
		}
	}
	return session
}

// MongoSessionDocFromDomain converts a domain entity to a MongoDB document
func MongoSessionDocFromDomain(session *domain.Session) *MongoSessionDoc {
	doc := &MongoSessionDoc{
		ID:          session.ID,
		Shop:        session.Shop,
		State:       session.State,
		IsOnline:    session.IsOnline,
		Scope:       session.Scope,
		AccessToken: session.AccessToken,
	}
	if session.Expires != nil {
		expires := *session.Expires
		doc.Expires = &expires
	}
	if info := session.OnlineAccessInfo; info != nil {
		doc.OnlineAccessInfo = &MongoOnlineAccessInfoDoc{
			ExpiresIn:           info.ExpiresIn,
			AssociatedUserScope: info.AssociatedUserScope,
			AssociatedUser: MongoAssociatedUserDoc{
				ID:            info.AssociatedUser.ID,
				FirstName:     info.AssociatedUser.FirstName,
				LastName:      info.AssociatedUser.LastName,
				Email:         info.AssociatedUser.Email,
				EmailVerified: info.AssociatedUser.EmailVerified,
				AccountOwner:  info.AssociatedUser.AccountOwner,
				Locale:        info.AssociatedUser.Locale,
				Collaborator:  info.AssociatedUser.Collaborator,
			},
		}
	}
	return doc
}
