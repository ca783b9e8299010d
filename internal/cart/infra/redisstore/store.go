// Package redisstore persists the cart snapshot as a single JSON blob in
// Redis, overwritten in full on every successful mutation.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketshoes/cart/internal/cart/domain"
)

type Store struct {
	client *redis.Client
	key    string
}

func NewStore(client *redis.Client, key string) *Store {
	return &Store{client: client, key: key}
}

// Load reads the stored snapshot. A missing key means no cart has been
// saved yet and yields an empty cart; a present but undecodable value is
// reported as an error so the caller can decide how strict to be.
func (s *Store) Load(ctx context.Context) (domain.Cart, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Cart{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", s.key, err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("decode stored cart: %w", err)
	}
	return cart, nil
}

// Save overwrites the snapshot. No TTL: the cart lives until replaced.
func (s *Store) Save(ctx context.Context, cart domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", s.key, err)
	}
	return nil
}

// Ping reports whether the backing Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
