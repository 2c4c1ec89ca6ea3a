package market

import "slices"

// CartItem is one cart line. UnitPrice is the price seen when the line was
// last touched; payment always charges the current catalog price.
type CartItem struct {
	ProductID int64   `json:"product_id" csv:"product_id"`
	Name      string  `json:"name" csv:"name"`
	UnitPrice float64 `json:"unit_price" csv:"unit_price"`
	Quantity  int     `json:"quantity" csv:"quantity"`
}

func (i CartItem) Total() float64 { return i.UnitPrice * float64(i.Quantity) }

// Cart is a transient, per-session list of lines keyed by product id. It is
// not safe for concurrent use; each session owns its cart.
type Cart struct {
	items []CartItem
}

func NewCart() *Cart { return &Cart{} }

func (c *Cart) index(productID int64) int {
	return slices.IndexFunc(c.items, func(i CartItem) bool { return i.ProductID == productID })
}

// Quantity returns the requested quantity for productID, or 0.
func (c *Cart) Quantity(productID int64) int {
	if i := c.index(productID); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

// Add puts qty of p in the cart, growing the existing line if there is one.
func (c *Cart) Add(p *Product, qty int) {
	if i := c.index(p.ID); i >= 0 {
		c.items[i].Quantity += qty
		c.items[i].UnitPrice = p.Price
		return
	}
	c.items = append(c.items, CartItem{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price, Quantity: qty})
}

// Set replaces the quantity of an existing line.
func (c *Cart) Set(productID int64, qty int) error {
	i := c.index(productID)
	if i < 0 {
		return ErrNotInCart
	}
	c.items[i].Quantity = qty
	return nil
}

// Remove drops the line for productID and reports whether it existed.
func (c *Cart) Remove(productID int64) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.items = slices.Delete(c.items, i, i+1)
	return true
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []CartItem { return slices.Clone(c.items) }

func (c *Cart) Len() int { return len(c.items) }

// Total sums the lines at their recorded unit prices.
func (c *Cart) Total() float64 {
	var sum float64
	for _, i := range c.items {
		sum += i.Total()
	}
	return sum
}

func (c *Cart) Clear() { c.items = nil }
