// Package summary derives the distinct-product count shown in the
// storefront header. It is a read-only consumer of the cart store.
package summary

import (
	"fmt"
	"sync"

	"github.com/rocketshoes/cart/internal/cart/domain"
)

// CartSource is the slice of the cart store the view needs: the current
// snapshot plus change notifications.
type CartSource interface {
	Cart() domain.Cart
	Subscribe(fn func(domain.Cart)) func()
}

// Count returns the number of distinct product IDs in the cart. The store
// guarantees uniqueness per ID; counting distinct IDs anyway keeps the
// displayed number right even against a malformed stored snapshot.
func Count(cart domain.Cart) int {
	seen := make(map[int64]struct{}, len(cart))
	for _, p := range cart {
		seen[p.ID] = struct{}{}
	}
	return len(seen)
}

// Label formats the count with the storefront wording: singular for exactly
// one, plural otherwise (including zero).
func Label(count int) string {
	if count == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d itens", count)
}

// View caches the current count, updated on every new snapshot.
type View struct {
	mu     sync.RWMutex
	count  int
	primed bool
	unsub  func()
}

// NewView subscribes before taking the initial reading, so a mutation that
// lands between the two is delivered rather than lost. The seed reading is
// discarded if a snapshot arrived first.
func NewView(src CartSource) *View {
	v := &View{}
	v.unsub = src.Subscribe(func(cart domain.Cart) {
		v.mu.Lock()
		v.count = Count(cart)
		v.primed = true
		v.mu.Unlock()
	})

	seed := Count(src.Cart())
	v.mu.Lock()
	if !v.primed {
		v.count = seed
		v.primed = true
	}
	v.mu.Unlock()
	return v
}

func (v *View) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.count
}

func (v *View) Label() string {
	return Label(v.Count())
}

// Close cancels the subscription.
func (v *View) Close() {
	v.unsub()
}
