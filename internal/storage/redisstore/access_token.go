// Package redisstore implements the access-token cache on redis. The token
// expiry doubles as the key TTL so stale credentials age out on their own.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourorg/payment-router/internal/storage"
)

// AccessTokenStore implements storage.AccessTokenStore on a redis client.
type AccessTokenStore struct {
	client *redis.Client
	prefix string
}

// NewAccessTokenStore creates a store around an existing client.
func NewAccessTokenStore(client *redis.Client) *AccessTokenStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &AccessTokenStore{client: client, prefix: "access_token"}
}

func (s *AccessTokenStore) tokenKey(merchantID, connectorID string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, merchantID, connectorID)
}

// GetAccessToken returns the cached token or (nil, nil) when absent.
func (s *AccessTokenStore) GetAccessToken(ctx context.Context, merchantID, connectorID string) (*storage.AccessToken, error) {
	raw, err := s.client.Get(ctx, s.tokenKey(merchantID, connectorID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: get access token: %w", err)
	}
	var token storage.AccessToken
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, fmt.Errorf("redisstore: decode access token: %w", err)
	}
	return &token, nil
}

// SetAccessToken replaces the cached token, expiring it with the credential.
func (s *AccessTokenStore) SetAccessToken(ctx context.Context, merchantID, connectorID string, token storage.AccessToken) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("redisstore: encode access token: %w", err)
	}
	ttl := time.Duration(token.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	if err := s.client.Set(ctx, s.tokenKey(merchantID, connectorID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: set access token: %w", err)
	}
	return nil
}
