// Package catalog is the HTTP client for the external catalog/stock service.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rocketshoes/cart/internal/cart/app"
	"github.com/rocketshoes/cart/internal/cart/domain"
)

type Client struct {
	baseURL string
	http    *http.Client

	// stock reads are deduplicated: concurrent availability checks for the
	// same product share one request.
	sf singleflight.Group
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Product fetches the catalog record for a product. The record carries no
// cart amount; callers own that field.
func (c *Client) Product(ctx context.Context, productID int64) (domain.Product, error) {
	var p domain.Product
	err := c.getJSON(ctx, fmt.Sprintf("%s/products/%d", c.baseURL, productID), productID, &p)
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// Stock fetches current availability for a product.
func (c *Client) Stock(ctx context.Context, productID int64) (domain.Stock, error) {
	// The shared request is detached from the first caller's context so one
	// caller bailing out cannot fail the whole flight; the client timeout
	// still bounds it. Each caller's own cancellation is honored below.
	fctx := context.WithoutCancel(ctx)
	v, err, _ := c.sf.Do("stock:"+strconv.FormatInt(productID, 10), func() (any, error) {
		var s domain.Stock
		if err := c.getJSON(fctx, fmt.Sprintf("%s/stock/%d", c.baseURL, productID), productID, &s); err != nil {
			return domain.Stock{}, err
		}
		return s, nil
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.Stock{}, ctxErr
	}
	if err != nil {
		return domain.Stock{}, err
	}
	return v.(domain.Stock), nil
}

func (c *Client) getJSON(ctx context.Context, url string, productID int64, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("product %d: %w", productID, app.ErrProductNotFound)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}
