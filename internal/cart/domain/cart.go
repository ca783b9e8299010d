package domain

// Product is one line item in the cart. The display fields (Title, Price,
// Image) come from the catalog and are opaque to the cart logic; Amount is
// the quantity the shopper has selected.
type Product struct {
	ID     int64   `json:"id"`
	Title  string  `json:"title"`
	Price  float64 `json:"price"`
	Image  string  `json:"image"`
	Amount int     `json:"amount"`
}

// Stock is the externally tracked available inventory for a product.
type Stock struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}

// Cart is an ordered sequence of products, at most one entry per product ID.
// A Cart value is treated as an immutable snapshot: every mutation helper
// returns a fresh slice and never touches the receiver's backing array.
type Cart []Product

// IndexOf returns the position of the product with the given ID, or -1.
func (c Cart) IndexOf(productID int64) int {
	for i, p := range c {
		if p.ID == productID {
			return i
		}
	}
	return -1
}

// Find returns the product with the given ID, if present.
func (c Cart) Find(productID int64) (Product, bool) {
	if i := c.IndexOf(productID); i >= 0 {
		return c[i], true
	}
	return Product{}, false
}

// Clone returns an independent copy of the cart.
func (c Cart) Clone() Cart {
	if c == nil {
		return nil
	}
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// With returns a new cart with p appended.
func (c Cart) With(p Product) Cart {
	out := make(Cart, 0, len(c)+1)
	out = append(out, c...)
	out = append(out, p)
	return out
}

// WithAmount returns a new cart where the entry for productID carries the
// given amount. The receiver is returned unchanged if the ID is absent.
func (c Cart) WithAmount(productID int64, amount int) Cart {
	i := c.IndexOf(productID)
	if i < 0 {
		return c
	}
	out := c.Clone()
	out[i].Amount = amount
	return out
}

// Without returns a new cart with the entry for productID removed,
// preserving the order of the remaining entries.
func (c Cart) Without(productID int64) Cart {
	i := c.IndexOf(productID)
	if i < 0 {
		return c
	}
	out := make(Cart, 0, len(c)-1)
	out = append(out, c[:i]...)
	out = append(out, c[i+1:]...)
	return out
}
