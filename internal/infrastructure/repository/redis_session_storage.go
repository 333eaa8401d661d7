package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"archie-shopify-app-core/internal/domain"
	"archie-shopify-app-core/internal/ports"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces session keys
const DefaultRedisKeyPrefix = "shopify_sessions:"

// RedisSessionStorage implements SessionStorage using Redis. Each session is a JSON value
// under prefix+id and does not expire on its own.
type RedisSessionStorage struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisSessionStorage creates a new Redis session storage
func NewRedisSessionStorage(client redis.UniversalClient, prefix string) *RedisSessionStorage {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisSessionStorage{
		client: client,
		prefix: prefix,
	}
}

var _ ports.SessionStorage = (*RedisSessionStorage)(nil)

func (r *RedisSessionStorage) key(id string) string {
	return r.prefix + id
}

// Store saves or replaces a session
func (r *RedisSessionStorage) Store(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(session.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Load retrieves a session by id
func (r *RedisSessionStorage) Load(ctx context.Context, id string) (*domain.Session, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &session, nil
}

// Delete removes a session by id
func (r *RedisSessionStorage) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
