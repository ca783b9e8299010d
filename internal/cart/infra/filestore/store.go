// Package filestore persists the cart snapshot as a JSON file, for setups
// without Redis. Writes go through a temp file plus rename so a crash
// mid-write cannot corrupt the stored cart.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rocketshoes/cart/internal/cart/domain"
)

type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Load(ctx context.Context) (domain.Cart, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return domain.Cart{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("decode stored cart: %w", err)
	}
	return cart, nil
}

func (s *Store) Save(ctx context.Context, cart domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename %s: %w", s.path, err)
	}
	return nil
}
