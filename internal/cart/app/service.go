package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rocketshoes/cart/internal/cart/domain"
)

var (
	ErrOutOfStock      = errors.New("requested quantity out of stock")
	ErrNotInCart       = errors.New("product not in cart")
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidAmount   = errors.New("amount must keep quantity at least 1")
)

// Notice texts shown to the shopper, matching the storefront copy.
const (
	noticeOutOfStock   = "Quantidade solicitada fora de estoque"
	noticeRemoveFailed = "Erro na remoção do produto"
	noticeUpdateFailed = "Erro na alteração de quantidade do produto"
	noticeSaveFailed   = "Erro ao salvar o carrinho"
)

// Store owns the authoritative in-memory cart and keeps the persisted copy
// in sync. All mutations are serialized by a single mutex held across the
// whole read-validate-write sequence, so the one-entry-per-product invariant
// holds under concurrent use.
type Store struct {
	mu      sync.Mutex
	cart    domain.Cart
	seq     uint64
	catalog CatalogGateway
	snaps   SnapshotStore
	notif   Notifier
	log     *slog.Logger

	subMu   sync.Mutex
	subs    map[int]func(domain.Cart)
	nextSub int
	lastSeq uint64
}

// NewStore builds a Store seeded from the snapshot store. A snapshot that
// exists but fails to decode is treated leniently: the store logs a warning
// and starts empty rather than refusing to construct.
func NewStore(ctx context.Context, catalog CatalogGateway, snaps SnapshotStore, notif Notifier, log *slog.Logger) *Store {
	cart, err := snaps.Load(ctx)
	if err != nil {
		log.Warn("stored cart unreadable, starting empty", slog.Any("err", err))
		cart = domain.Cart{}
	}

	return &Store{
		cart:    cart,
		catalog: catalog,
		snaps:   snaps,
		notif:   notif,
		log:     log,
		subs:    make(map[int]func(domain.Cart)),
	}
}

// Cart returns a copy of the current snapshot.
func (s *Store) Cart() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Subscribe registers fn to be called with every new snapshot produced by a
// successful mutation. Snapshots arrive in commit order. fn runs on the
// mutating goroutine and must not call Subscribe or the returned cancel
// func; reading the store back is fine. The returned func cancels the
// subscription.
func (s *Store) Subscribe(fn func(domain.Cart)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// AddProduct puts one unit of the product in the cart. A product already
// present has its amount incremented by one, gated by available stock.
func (s *Store) AddProduct(ctx context.Context, productID int64) error {
	snap, seq, err := s.addProduct(ctx, productID)
	if err != nil {
		return err
	}
	s.publish(snap, seq)
	return nil
}

func (s *Store) addProduct(ctx context.Context, productID int64) (domain.Cart, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, inCart := s.cart.Find(productID)

	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		s.notify(ctx, KindAddFailed, err.Error())
		return nil, 0, fmt.Errorf("add product %d: %w", productID, err)
	}

	if !inCart {
		product.Amount = 1
		return s.commit(ctx, s.cart.With(product))
	}

	candidate := current.Amount + 1
	ok, err := s.checkAvailableQuantity(ctx, productID, candidate)
	if err != nil {
		s.notify(ctx, KindAddFailed, err.Error())
		return nil, 0, fmt.Errorf("add product %d: %w", productID, err)
	}
	if !ok {
		s.notify(ctx, KindOutOfStock, noticeOutOfStock)
		return nil, 0, fmt.Errorf("add product %d: %w", productID, ErrOutOfStock)
	}

	return s.commit(ctx, s.cart.WithAmount(productID, candidate))
}

// RemoveProduct takes the product's line item out of the cart. Removing an
// absent product is a no-op that only emits a notice.
func (s *Store) RemoveProduct(ctx context.Context, productID int64) error {
	snap, seq, err := s.removeProduct(ctx, productID)
	if err != nil {
		return err
	}
	s.publish(snap, seq)
	return nil
}

func (s *Store) removeProduct(ctx context.Context, productID int64) (domain.Cart, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cart.IndexOf(productID) < 0 {
		s.notify(ctx, KindRemoveFailed, noticeRemoveFailed)
		return nil, 0, fmt.Errorf("remove product %d: %w", productID, ErrNotInCart)
	}

	return s.commit(ctx, s.cart.Without(productID))
}

// UpdateProductAmount applies a signed delta to the product's quantity.
// The resulting amount must stay at least 1 and within available stock.
func (s *Store) UpdateProductAmount(ctx context.Context, productID int64, delta int) error {
	snap, seq, err := s.updateProductAmount(ctx, productID, delta)
	if err != nil {
		return err
	}
	s.publish(snap, seq)
	return nil
}

func (s *Store) updateProductAmount(ctx context.Context, productID int64, delta int) (domain.Cart, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, inCart := s.cart.Find(productID)
	if !inCart {
		s.notify(ctx, KindUpdateFailed, noticeUpdateFailed)
		return nil, 0, fmt.Errorf("update product %d: %w", productID, ErrNotInCart)
	}

	candidate := current.Amount + delta
	if candidate < 1 {
		s.notify(ctx, KindUpdateFailed, noticeUpdateFailed)
		return nil, 0, fmt.Errorf("update product %d to %d: %w", productID, candidate, ErrInvalidAmount)
	}

	ok, err := s.checkAvailableQuantity(ctx, productID, candidate)
	if err != nil {
		s.notify(ctx, KindUpdateFailed, noticeUpdateFailed)
		return nil, 0, fmt.Errorf("update product %d: %w", productID, err)
	}
	if !ok {
		s.notify(ctx, KindOutOfStock, noticeOutOfStock)
		return nil, 0, fmt.Errorf("update product %d: %w", productID, ErrOutOfStock)
	}

	return s.commit(ctx, s.cart.WithAmount(productID, candidate))
}

// checkAvailableQuantity is the single gate for all quantity increases.
func (s *Store) checkAvailableQuantity(ctx context.Context, productID int64, newQuantity int) (bool, error) {
	stock, err := s.catalog.Stock(ctx, productID)
	if err != nil {
		return false, err
	}
	return stock.Amount >= newQuantity, nil
}

// commit installs the new snapshot, stamps it with the next sequence
// number, and persists it. A persistence failure does not roll back the
// in-memory update; it is surfaced as a notice and logged, so the shopper
// keeps working while the divergence is visible.
func (s *Store) commit(ctx context.Context, next domain.Cart) (domain.Cart, uint64, error) {
	s.cart = next
	s.seq++

	if err := s.snaps.Save(ctx, next); err != nil {
		s.log.Error("cart snapshot save failed", slog.Any("err", err))
		s.notify(ctx, KindPersistFailed, noticeSaveFailed)
	}

	return next.Clone(), s.seq, nil
}

// publish fans the snapshot out to subscribers in commit order. A publish
// that lost the race to a newer commit is dropped, so subscribers never
// observe state moving backwards.
func (s *Store) publish(snap domain.Cart, seq uint64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if seq <= s.lastSeq {
		return
	}
	s.lastSeq = seq

	for _, fn := range s.subs {
		fn(snap.Clone())
	}
}

func (s *Store) notify(ctx context.Context, kind, text string) {
	s.notif.Notify(ctx, Notice{
		ID:   uuid.NewString(),
		Kind: kind,
		Text: text,
		At:   time.Now().UTC(),
	})
}
