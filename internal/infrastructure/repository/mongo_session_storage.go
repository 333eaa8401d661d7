package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"archie-shopify-app-core/internal/domain"
	"archie-shopify-app-core/internal/infrastructure/repository/entity"
	"archie-shopify-app-core/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SessionsCollection is the collection sessions are kept in
const SessionsCollection = "shopify_sessions"

// MongoSessionStorage implements SessionStorage using MongoDB
type MongoSessionStorage struct {
	collection *mongo.Collection
}

// NewMongoSessionStorage creates a new MongoDB session storage
func NewMongoSessionStorage(db *mongo.Database) *MongoSessionStorage {
	return &MongoSessionStorage{
		collection: db.Collection(SessionsCollection),
	}
}

var _ ports.SessionStorage = (*MongoSessionStorage)(nil)

// EnsureIndexes creates the shop index of the sessions collection
func (r *MongoSessionStorage) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "shop", Value: 1}},
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}
	return nil
}

// Store saves or replaces a session
func (r *MongoSessionStorage) Store(ctx context.Context, session *domain.Session) error {
	doc := entity.MongoSessionDocFromDomain(session)
	doc.UpdatedAt = time.Now()

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": session.ID}, doc, opts)
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}

// Load retrieves a session by id
func (r *MongoSessionStorage) Load(ctx context.Context, id string) (*domain.Session, error) {
	var doc entity.MongoSessionDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	return doc.ToDomain(), nil
}

// Delete removes a session by id
func (r *MongoSessionStorage) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}
