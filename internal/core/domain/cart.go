package domain

import (
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	Code        string
	Description string
	UnitPrice   decimal.Decimal
	Quantity    int
	Subtotal    decimal.Decimal
}

type CatalogPage struct {
	Items       []Product
	HasPrevious bool
	HasNext     bool
}

// A CartSession owns the visible catalog snapshot, the compiled policy
// and the cart ledger for one operator. Every mutation runs entirely
// under the session lock, so no operation ever observes a half-applied
// prior one: reserved + available stock always equals the stock level
// the session opened with.
type CartSession struct {
	ID string

	mu       sync.Mutex
	catalog  *Catalog
	policy   ServicePolicy
	pageSize int

	items map[string]*CartItem
	order []string

	lastRemito *Remito
	finalizing bool
}

func NewCartSession(
	id string, visible *Catalog, policy ServicePolicy, pageSize int,
) *CartSession {
	return &CartSession{
		ID:       id,
		catalog:  visible,
		policy:   policy,
		pageSize: pageSize,
		items:    make(map[string]*CartItem),
	}
}

func (s *CartSession) Policy() ServicePolicy {
	return s.policy
}

// VisibleProducts returns the policy-filtered catalog with live stock
// counters, in source order.
func (s *CartSession) VisibleProducts() []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Products()
}

func (s *CartSession) VisibleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Len()
}

// Page slices the products of one category. Pages are 1-indexed; a
// category with no matches yields an empty page, not an error.
func (s *CartSession) Page(category string, page int) CatalogPage {
	s.mu.Lock()
	defer s.mu.Unlock()

	if page < 1 {
		page = 1
	}

	var filtered []Product
	for _, p := range s.catalog.products {
		if p.Category == category {
			filtered = append(filtered, p)
		}
	}

	start := (page - 1) * s.pageSize
	if start >= len(filtered) {
		return CatalogPage{HasPrevious: len(filtered) > 0 && page > 1}
	}

	end := min(start+s.pageSize, len(filtered))
	items := make([]Product, end-start)
	copy(items, filtered[start:end])

	return CatalogPage{
		Items:       items,
		HasPrevious: page > 1,
		HasNext:     end < len(filtered),
	}
}

// AddOne reserves one unit of code: bumps the cart line and decrements
// stock in the same step. A code without remaining stock, or absent
// from the visible catalog, fails with [ErrOutOfStock].
func (s *CartSession) AddOne(code string) (CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.catalog.product(code)
	if p == nil || p.Stock <= 0 {
		return CartItem{}, ErrOutOfStock
	}

	it, ok := s.items[code]
	if !ok {
		it = &CartItem{
			Code:        p.Code,
			Description: p.Description,
			UnitPrice:   p.Price,
		}
		s.items[code] = it
		s.order = append(s.order, code)
	}

	it.Quantity++
	it.Subtotal = subtotal(it.UnitPrice, it.Quantity)
	p.Stock--

	return *it, nil
}

// SetQuantity moves the cart line to quantity and settles the stock
// delta. A quantity above what stock can satisfy is clamped to the
// maximum feasible value; the clamp is reported, not failed.
func (s *CartSession) SetQuantity(code string, quantity int) (CartItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity < 1 {
		return CartItem{}, false, ErrInvalidQuantity
	}

	it, ok := s.items[code]
	if !ok {
		return CartItem{}, false, ErrNotInCart
	}
	p := s.catalog.product(code)
	if p == nil {
		return CartItem{}, false, ErrNotInCart
	}

	var clamped bool
	if limit := it.Quantity + p.Stock; quantity > limit {
		quantity = limit
		clamped = true
	}

	p.Stock -= quantity - it.Quantity
	it.Quantity = quantity
	it.Subtotal = subtotal(it.UnitPrice, quantity)

	return *it, clamped, nil
}

// Remove returns the full reserved quantity to stock and drops the line.
func (s *CartSession) Remove(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[code]
	if !ok {
		return ErrNotInCart
	}

	if p := s.catalog.product(code); p != nil {
		p.Stock += it.Quantity
	}

	delete(s.items, code)
	for i, c := range s.order {
		if c == code {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Items returns the cart lines in insertion order.
func (s *CartSession) Items() []CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemsLocked()
}

func (s *CartSession) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalLocked()
}

// Finalize snapshots the ledger into an immutable Remito. The cart is
// intentionally left untouched and stays editable afterward; only one
// finalize may be in flight until [CartSession.FinalizeSettled] is
// called, so a double invocation cannot submit twice.
func (s *CartSession) Finalize(customer string, now time.Time) (Remito, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer = strings.TrimSpace(customer)
	if customer == "" {
		return Remito{}, ErrMissingCustomer
	}
	if len(s.order) == 0 {
		return Remito{}, ErrEmptyCart
	}
	if s.finalizing {
		return Remito{}, ErrFinalizeInFlight
	}

	r := Remito{
		Number:    RemitoNumber(now),
		Customer:  customer,
		CreatedAt: now,
		Items:     s.itemsLocked(),
		Total:     s.totalLocked(),
	}

	s.finalizing = true
	s.lastRemito = &r

	return r, nil
}

// FinalizeSettled lifts the in-flight guard once the remote
// reconciliation for the last finalize has resolved either way.
func (s *CartSession) FinalizeSettled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizing = false
}

// LastRemito returns the most recently issued receipt.
func (s *CartSession) LastRemito() (Remito, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRemito == nil {
		return Remito{}, false
	}
	return *s.lastRemito, true
}

// ApplyStockUpdates overwrites displayed stock with the authoritative
// remote figures. Replacement, never addition: a retried reconciliation
// must not double-count.
func (s *CartSession) ApplyStockUpdates(us []StockUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range us {
		s.catalog.SetStock(u.Code, u.Stock)
	}
}

func (s *CartSession) itemsLocked() []CartItem {
	items := make([]CartItem, 0, len(s.order))
	for _, code := range s.order {
		items = append(items, *s.items[code])
	}
	return items
}

func (s *CartSession) totalLocked() decimal.Decimal {
	total := decimal.Zero
	for _, code := range s.order {
		total = total.Add(s.items[code].Subtotal)
	}
	return total
}

func subtotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

type StockUpdate struct {
	Code  string
	Stock int
}
