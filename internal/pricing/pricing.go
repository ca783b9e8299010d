// Package pricing computes the cart page totals: a per-line subtotal and a
// grand total, with unit prices refreshed from the catalog.
package pricing

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rocketshoes/cart/internal/cart/domain"
)

type CatalogReader interface {
	Product(ctx context.Context, productID int64) (domain.Product, error)
}

type Line struct {
	ProductID int64   `json:"productId"`
	Title     string  `json:"title"`
	Amount    int     `json:"amount"`
	UnitPrice float64 `json:"unitPrice"`
	Subtotal  float64 `json:"subtotal"`
}

type Quote struct {
	Lines []Line  `json:"lines"`
	Total float64 `json:"total"`
}

type Service struct {
	catalog       CatalogReader
	maxConcurrent int
}

func NewService(catalog CatalogReader, maxConcurrent int) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	return &Service{catalog: catalog, maxConcurrent: maxConcurrent}
}

// Quote prices the given snapshot. Catalog lookups run concurrently with a
// bounded fan-out; any failed lookup fails the whole quote. An empty cart
// yields an empty quote with total zero.
func (s *Service) Quote(ctx context.Context, cart domain.Cart) (Quote, error) {
	if len(cart) == 0 {
		return Quote{Lines: []Line{}}, nil
	}

	lines := make([]Line, len(cart))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for idx := range cart {
		g.Go(func() error {
			it := cart[idx]
			if it.Amount <= 0 {
				return fmt.Errorf("product %d: amount must be greater than zero, got %d", it.ID, it.Amount)
			}

			product, err := s.catalog.Product(ctx, it.ID)
			if err != nil {
				return fmt.Errorf("price product %d: %w", it.ID, err)
			}

			lines[idx] = Line{
				ProductID: product.ID,
				Title:     product.Title,
				Amount:    it.Amount,
				UnitPrice: product.Price,
				Subtotal:  product.Price * float64(it.Amount),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Quote{}, err
	}

	var total float64
	for _, line := range lines {
		total += line.Subtotal
	}

	return Quote{Lines: lines, Total: total}, nil
}
