package app_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/rocketshoes/cart/internal/cart/app"
	"github.com/rocketshoes/cart/internal/cart/domain"
)

type fakeCatalog struct {
	mu       sync.Mutex
	products map[int64]domain.Product
	stock    map[int64]int
	fail     error
}

func (f *fakeCatalog) Product(ctx context.Context, id int64) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return domain.Product{}, f.fail
	}
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("product %d: %w", id, app.ErrProductNotFound)
	}
	return p, nil
}

func (f *fakeCatalog) Stock(ctx context.Context, id int64) (domain.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return domain.Stock{}, f.fail
	}
	return domain.Stock{ID: id, Amount: f.stock[id]}, nil
}

type fakeSnaps struct {
	mu      sync.Mutex
	stored  domain.Cart
	loadErr error
	saveErr error
	saves   int
}

func (f *fakeSnaps) Load(ctx context.Context) (domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.stored.Clone(), nil
}

func (f *fakeSnaps) Save(ctx context.Context, cart domain.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.stored = cart.Clone()
	f.saves++
	return nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []app.Notice
}

func (f *fakeNotifier) Notify(ctx context.Context, n app.Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
}

func (f *fakeNotifier) byKind(kind string) []app.Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []app.Notice
	for _, n := range f.notices {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*app.Store, *fakeCatalog, *fakeSnaps, *fakeNotifier) {
	t.Helper()
	catalog := &fakeCatalog{
		products: map[int64]domain.Product{
			1: {ID: 1, Title: "Tênis de Caminhada Leve", Price: 179.9},
			2: {ID: 2, Title: "Tênis VR Caminhada", Price: 139.9},
			3: {ID: 3, Title: "Tênis Adulto", Price: 149.9},
		},
		stock: map[int64]int{1: 10, 2: 5, 3: 2},
	}
	snaps := &fakeSnaps{}
	notif := &fakeNotifier{}
	store := app.NewStore(context.Background(), catalog, snaps, notif, testLogger())
	return store, catalog, snaps, notif
}

func TestAddProductDistinctIDs(t *testing.T) {
	store, _, snaps, _ := newTestStore(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, store.AddProduct(ctx, id))
	}

	cart := store.Cart()
	require.Len(t, cart, 3)
	for i, id := range []int64{1, 2, 3} {
		assert.Equal(t, id, cart[i].ID)
		assert.Equal(t, 1, cart[i].Amount)
	}
	assert.Equal(t, 3, snaps.saves)
}

func TestAddProductTwiceIncrements(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddProduct(ctx, 1))
	require.NoError(t, store.AddProduct(ctx, 1))

	cart := store.Cart()
	require.Len(t, cart, 1)
	assert.Equal(t, 2, cart[0].Amount)
}

func TestAddProductOutOfStock(t *testing.T) {
	store, catalog, snaps, notif := newTestStore(t)
	ctx := context.Background()

	catalog.stock[3] = 1
	require.NoError(t, store.AddProduct(ctx, 3))
	savesBefore := snaps.saves

	err := store.AddProduct(ctx, 3)
	require.ErrorIs(t, err, app.ErrOutOfStock)

	cart := store.Cart()
	require.Len(t, cart, 1)
	assert.Equal(t, 1, cart[0].Amount)
	assert.Equal(t, savesBefore, snaps.saves, "failed mutation must not persist")

	notices := notif.byKind(app.KindOutOfStock)
	require.Len(t, notices, 1)
	assert.Equal(t, "Quantidade solicitada fora de estoque", notices[0].Text)
}

func TestAddProductUnknownID(t *testing.T) {
	store, _, _, notif := newTestStore(t)

	err := store.AddProduct(context.Background(), 99)
	require.ErrorIs(t, err, app.ErrProductNotFound)
	assert.Empty(t, store.Cart())
	require.Len(t, notif.byKind(app.KindAddFailed), 1)
}

func TestAddProductServiceFault(t *testing.T) {
	store, catalog, _, notif := newTestStore(t)

	require.NoError(t, store.AddProduct(context.Background(), 1))
	catalog.fail = errors.New("connection refused")

	err := store.AddProduct(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, app.ErrOutOfStock)

	cart := store.Cart()
	require.Len(t, cart, 1)
	assert.Equal(t, 1, cart[0].Amount, "fault must leave the cart unchanged")

	notices := notif.byKind(app.KindAddFailed)
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Text, "connection refused")
}

func TestRemoveProduct(t *testing.T) {
	store, _, snaps, _ := newTestStore(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, store.AddProduct(ctx, id))
	}

	require.NoError(t, store.RemoveProduct(ctx, 2))

	cart := store.Cart()
	require.Len(t, cart, 2)
	assert.Equal(t, int64(1), cart[0].ID)
	assert.Equal(t, int64(3), cart[1].ID)
	assert.Equal(t, cart, snaps.stored)
}

func TestRemoveProductAbsent(t *testing.T) {
	store, _, snaps, notif := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddProduct(ctx, 1))
	savesBefore := snaps.saves

	err := store.RemoveProduct(ctx, 42)
	require.ErrorIs(t, err, app.ErrNotInCart)
	assert.Len(t, store.Cart(), 1)
	assert.Equal(t, savesBefore, snaps.saves)
	require.Len(t, notif.byKind(app.KindRemoveFailed), 1)
	assert.Equal(t, "Erro na remoção do produto", notif.byKind(app.KindRemoveFailed)[0].Text)
}

func TestUpdateProductAmountDelta(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddProduct(ctx, 2))
	require.NoError(t, store.UpdateProductAmount(ctx, 2, 2))

	cart := store.Cart()
	require.Len(t, cart, 1)
	assert.Equal(t, 3, cart[0].Amount)
}

func TestUpdateProductAmountBelowOne(t *testing.T) {
	store, _, _, notif := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddProduct(ctx, 1))

	err := store.UpdateProductAmount(ctx, 1, -1)
	require.ErrorIs(t, err, app.ErrInvalidAmount)
	assert.Equal(t, 1, store.Cart()[0].Amount)
	require.Len(t, notif.byKind(app.KindUpdateFailed), 1)
}

func TestUpdateProductAmountAbsent(t *testing.T) {
	store, _, _, notif := newTestStore(t)

	err := store.UpdateProductAmount(context.Background(), 7, 1)
	require.ErrorIs(t, err, app.ErrNotInCart)
	require.Len(t, notif.byKind(app.KindUpdateFailed), 1)
}

func TestUpdateProductAmountOutOfStock(t *testing.T) {
	store, catalog, _, notif := newTestStore(t)
	ctx := context.Background()

	catalog.stock[1] = 2
	require.NoError(t, store.AddProduct(ctx, 1))

	err := store.UpdateProductAmount(ctx, 1, 5)
	require.ErrorIs(t, err, app.ErrOutOfStock)
	assert.Equal(t, 1, store.Cart()[0].Amount)
	require.Len(t, notif.byKind(app.KindOutOfStock), 1)
}

func TestPersistedSnapshotRoundTrip(t *testing.T) {
	store, catalog, snaps, notif := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddProduct(ctx, 1))
	require.NoError(t, store.AddProduct(ctx, 2))
	require.NoError(t, store.UpdateProductAmount(ctx, 2, 1))

	reloaded := app.NewStore(ctx, catalog, snaps, notif, testLogger())
	assert.Equal(t, store.Cart(), reloaded.Cart())
}

func TestCorruptSnapshotStartsEmpty(t *testing.T) {
	_, catalog, _, notif := newTestStore(t)
	snaps := &fakeSnaps{loadErr: errors.New("invalid character 'x'")}

	store := app.NewStore(context.Background(), catalog, snaps, notif, testLogger())
	assert.Empty(t, store.Cart())
}

func TestPersistFailureKeepsStateAndNotices(t *testing.T) {
	store, _, snaps, notif := newTestStore(t)
	ctx := context.Background()

	snaps.saveErr = errors.New("disk full")

	require.NoError(t, store.AddProduct(ctx, 1))
	assert.Len(t, store.Cart(), 1)
	require.Len(t, notif.byKind(app.KindPersistFailed), 1)
}

func TestSubscribe(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	ctx := context.Background()

	var (
		mu    sync.Mutex
		snaps []domain.Cart
	)
	unsub := store.Subscribe(func(c domain.Cart) {
		mu.Lock()
		snaps = append(snaps, c)
		mu.Unlock()
	})

	require.NoError(t, store.AddProduct(ctx, 1))
	require.NoError(t, store.AddProduct(ctx, 2))

	mu.Lock()
	require.Len(t, snaps, 2)
	assert.Len(t, snaps[0], 1)
	assert.Len(t, snaps[1], 2)
	mu.Unlock()

	unsub()
	require.NoError(t, store.RemoveProduct(ctx, 1))

	mu.Lock()
	assert.Len(t, snaps, 2, "unsubscribed callback must not fire")
	mu.Unlock()
}

func TestSubscriberMayReadBack(t *testing.T) {
	store, _, _, _ := newTestStore(t)

	done := make(chan struct{})
	store.Subscribe(func(domain.Cart) {
		store.Cart() // must not deadlock
		close(done)
	})

	require.NoError(t, store.AddProduct(context.Background(), 1))
	<-done
}

func TestCartSnapshotIsolation(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddProduct(ctx, 1))

	snap := store.Cart()
	snap[0].Amount = 99

	assert.Equal(t, 1, store.Cart()[0].Amount)
}

func TestConcurrentAddSameProduct(t *testing.T) {
	store, catalog, _, _ := newTestStore(t)
	ctx := context.Background()

	const n = 50
	catalog.stock[1] = n

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			return store.AddProduct(ctx, 1)
		})
	}
	require.NoError(t, g.Wait())

	cart := store.Cart()
	require.Len(t, cart, 1, "concurrent adds must not duplicate the entry")
	assert.Equal(t, n, cart[0].Amount)
}

func TestSubscriberSeesFinalSnapshot(t *testing.T) {
	ctx := context.Background()

	for iter := 0; iter < 200; iter++ {
		store, _, _, _ := newTestStore(t)

		var mu sync.Mutex
		var last domain.Cart
		cancel := store.Subscribe(func(c domain.Cart) {
			mu.Lock()
			last = c
			mu.Unlock()
		})

		g, gctx := errgroup.WithContext(ctx)
		for id := int64(1); id <= 3; id++ {
			g.Go(func() error {
				return store.AddProduct(gctx, id)
			})
		}
		require.NoError(t, g.Wait())
		cancel()

		mu.Lock()
		got := last
		mu.Unlock()
		require.ElementsMatch(t, store.Cart(), got,
			"last delivered snapshot must match the store after all mutations settle")
	}
}
