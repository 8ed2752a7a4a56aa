package domain

import "github.com/shopspring/decimal"

type Product struct {
	Code        string
	Description string
	Category    string
	Price       decimal.Decimal
	Stock       int
}

// A Catalog is an order-preserving snapshot of products with lookup by code.
// Stock counters inside the catalog are live: cart operations decrement them
// and reconciliation overwrites them.
type Catalog struct {
	products []Product
	byCode   map[string]int
}

func NewCatalog(ps []Product) *Catalog {
	c := &Catalog{
		products: make([]Product, len(ps)),
		byCode:   make(map[string]int, len(ps)),
	}
	copy(c.products, ps)
	for i, p := range c.products {
		if _, ok := c.byCode[p.Code]; !ok {
			c.byCode[p.Code] = i
		}
	}
	return c
}

func (c *Catalog) Len() int {
	return len(c.products)
}

// Products returns a copy of all rows in the original order.
func (c *Catalog) Products() []Product {
	ps := make([]Product, len(c.products))
	copy(ps, c.products)
	return ps
}

func (c *Catalog) Get(code string) (Product, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

func (c *Catalog) Has(code string) bool {
	_, ok := c.byCode[code]
	return ok
}

// SetStock overwrites the stock counter for code. Unknown codes are
// ignored; the reconciliation endpoint may report rows the session
// never saw.
func (c *Catalog) SetStock(code string, stock int) {
	if i, ok := c.byCode[code]; ok {
		c.products[i].Stock = stock
	}
}

// product exposes the mutable row for ledger operations.
func (c *Catalog) product(code string) *Product {
	i, ok := c.byCode[code]
	if !ok {
		return nil
	}
	return &c.products[i]
}
