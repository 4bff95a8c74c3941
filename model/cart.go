package model

import (
	"encoding/json"
	"fmt"
)

// Product is the catalog metadata copied into a cart line when it is first added.
type Product struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"imageUrl"`
}

// Stock is the remotely tracked available quantity of a product.
type Stock struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}

// CartLine is one product entry in the cart. Amount is always >= 1.
type CartLine struct {
	Product
	Amount int `json:"amount"`
}

// Cart is an insertion-ordered list of lines, unique by product ID.
type Cart []CartLine

// Find returns the line for productID and its index.
func (c Cart) Find(productID int64) (CartLine, int, bool) {
	for i, line := range c {
		if line.ID == productID {
			return line, i, true
		}
	}
	return CartLine{}, -1, false
}

// Clone returns a copy that shares no backing array with c.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Size is the number of distinct products in the cart.
func (c Cart) Size() int { return len(c) }

// Subtotal is the sum of price times amount over all lines.
func (c Cart) Subtotal() float64 {
	var total float64
	for _, line := range c {
		total += line.Price * float64(line.Amount)
	}
	return total
}

// WithAmount returns a copy of c where productID has the given amount.
// If no line exists yet, add is appended with that amount.
func (c Cart) WithAmount(productID int64, amount int, add Product) Cart {
	out := c.Clone()
	if _, i, ok := out.Find(productID); ok {
		out[i].Amount = amount
		return out
	}
	return append(out, CartLine{Product: add, Amount: amount})
}

// Without returns a copy of c with the line for productID removed.
func (c Cart) Without(productID int64) Cart {
	out := make(Cart, 0, len(c))
	for _, line := range c {
		if line.ID != productID {
			out = append(out, line)
		}
	}
	return out
}

// Validate checks the cart invariants.
func (c Cart) Validate() error {
	seen := make(map[int64]struct{}, len(c))
	for _, line := range c {
		if line.Amount < 1 {
			return fmt.Errorf("product %d has amount %d", line.ID, line.Amount)
		}
		if _, dup := seen[line.ID]; dup {
			return fmt.Errorf("product %d appears more than once", line.ID)
		}
		seen[line.ID] = struct{}{}
	}
	return nil
}

// Encode serializes the cart as a flat JSON array of lines.
func Encode(c Cart) (string, error) {
	if c == nil {
		c = Cart{}
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses a cart written by Encode and rejects data that breaks the
// cart invariants.
func Decode(data string) (Cart, error) {
	var c Cart
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, err
	}
	if c == nil {
		c = Cart{}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
