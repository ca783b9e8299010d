package app

import (
	"context"
	"time"

	"github.com/rocketshoes/cart/internal/cart/domain"
)

// CatalogGateway reads product and stock records from the external
// catalog/stock service. Both calls are read-only and idempotent.
type CatalogGateway interface {
	Product(ctx context.Context, productID int64) (domain.Product, error)
	Stock(ctx context.Context, productID int64) (domain.Stock, error)
}

// SnapshotStore persists the full cart snapshot under a single key.
// Load returns an empty cart and no error when nothing has been stored yet;
// it returns an error only when a stored value exists but cannot be decoded.
type SnapshotStore interface {
	Load(ctx context.Context) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) error
}

// Notice is a short human-readable message surfaced to the shopper.
type Notice struct {
	ID   string    `json:"id"`
	Kind string    `json:"kind"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Notice kinds emitted by the store.
const (
	KindOutOfStock    = "out_of_stock"
	KindAddFailed     = "add_failed"
	KindRemoveFailed  = "remove_failed"
	KindUpdateFailed  = "update_failed"
	KindPersistFailed = "persist_failed"
)

// Notifier is the one-way user notification channel. Implementations must
// not block the mutation path; delivery failures are theirs to swallow.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}
