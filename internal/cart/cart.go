package cart

import (
	"errors"

	"github.com/mossery/storefront-api/internal/delivery"
	"github.com/mossery/storefront-api/internal/discount"
	"github.com/mossery/storefront-api/internal/pricing"
)

var (
	// ErrInvalidInput is returned when the provided payload is invalid.
	ErrInvalidInput = errors.New("invalid input")
	// ErrItemNotFound indicates the referenced line item is not in the cart.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrCapacityExceeded indicates the mutation would push the cart-wide
	// quantity over the configured cap. The cart is left unchanged.
	ErrCapacityExceeded = errors.New("cart quantity cap exceeded")
	// ErrDiscountAlreadyApplied indicates a discount is attached; it must be
	// cleared explicitly before another can be applied.
	ErrDiscountAlreadyApplied = errors.New("a discount is already applied")
)

// Defaults for the quantity policy.
const (
	DefaultPerItemMax = 5
	DefaultCartMax    = 20
)

// Policy carries the admin-tunable cart rules.
type Policy struct {
	PerItemMax        int
	CartMax           int
	FreeShippingBasis delivery.Basis
}

func (p Policy) normalized() Policy {
	if p.PerItemMax <= 0 {
		p.PerItemMax = DefaultPerItemMax
	}
	if p.CartMax <= 0 {
		p.CartMax = DefaultCartMax
	}
	if p.FreeShippingBasis == "" {
		p.FreeShippingBasis = delivery.BasisPreDiscount
	}
	return p
}

// LineItem is one product entry with its quantity and the unit price
// snapshotted at add-time. The subtotal is derived, never stored.
type LineItem struct {
	ID        string  `json:"id"`
	Title     string  `json:"title,omitempty"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

// UnitPriceCents returns the snapshotted unit price in cents.
func (li LineItem) UnitPriceCents() pricing.Money {
	return pricing.ToMinorUnits(li.UnitPrice)
}

// SubtotalCents derives the line subtotal in cents.
func (li LineItem) SubtotalCents() pricing.Money {
	return li.UnitPriceCents() * pricing.Money(li.Quantity)
}

// DeliveryInfo is the resolved delivery selection held by the cart. It keeps
// enough of the zone's pricing inputs (method price, eligibility, threshold)
// for the fee to be re-derived as the subtotal changes.
type DeliveryInfo struct {
	Country       string  `json:"countryCode"`
	MethodID      string  `json:"methodId"`
	MethodLabel   string  `json:"methodLabel,omitempty"`
	Currency      string  `json:"currency,omitempty"`
	Price         float64 `json:"price"`
	FreeEligible  bool    `json:"freeEligible"`
	FreeThreshold float64 `json:"freeThreshold"`
	PostalCode    string  `json:"postalCode,omitempty"`
	Region        string  `json:"region,omitempty"`
}

// Totals is the derived breakdown. TotalCents is the authoritative charge
// amount; the payment flow must charge exactly this value.
type Totals struct {
	SubtotalCents           pricing.Money `json:"subtotalCents"`
	DiscountCents           pricing.Money `json:"discountCents"`
	PriceAfterDiscountCents pricing.Money `json:"priceAfterDiscountCents"`
	DeliveryFeeCents        pricing.Money `json:"deliveryFeeCents"`
	TotalCents              pricing.Money `json:"totalCents"`
}

// Subtotal returns the decimal subtotal for display.
func (t Totals) Subtotal() float64 { return pricing.FromMinorUnits(t.SubtotalCents) }

// Discount returns the decimal applied discount for display.
func (t Totals) Discount() float64 { return pricing.FromMinorUnits(t.DiscountCents) }

// PriceAfterDiscount returns the decimal post-discount price for display.
func (t Totals) PriceAfterDiscount() float64 {
	return pricing.FromMinorUnits(t.PriceAfterDiscountCents)
}

// DeliveryFee returns the decimal delivery fee for display.
func (t Totals) DeliveryFee() float64 { return pricing.FromMinorUnits(t.DeliveryFeeCents) }

// Total returns the decimal grand total for display and charge submission.
func (t Totals) Total() float64 { return pricing.FromMinorUnits(t.TotalCents) }

// Aggregate is the cart state machine. It is the sole owner of line items,
// the attached discount rule, the delivery selection and the derived totals.
// Every mutation ends with a full recompute from primary state; derived
// fields are never incrementally patched. Single logical writer, no locking.
type Aggregate struct {
	policy   Policy
	items    []LineItem
	rule     *discount.Rule
	delivery *DeliveryInfo
	totals   Totals
}

// New returns an empty aggregate with the given policy.
func New(policy Policy) *Aggregate {
	a := &Aggregate{policy: policy.normalized()}
	a.Recompute()
	return a
}

// Items returns a copy of the line items.
func (a *Aggregate) Items() []LineItem {
	out := make([]LineItem, len(a.items))
	copy(out, a.items)
	return out
}

// Discount returns the attached rule, or nil.
func (a *Aggregate) Discount() *discount.Rule {
	if a.rule == nil {
		return nil
	}
	r := *a.rule
	return &r
}

// Delivery returns the delivery selection, or nil.
func (a *Aggregate) Delivery() *DeliveryInfo {
	if a.delivery == nil {
		return nil
	}
	d := *a.delivery
	return &d
}

// Totals returns the derived breakdown.
func (a *Aggregate) Totals() Totals { return a.totals }

// IsEmpty reports whether the cart holds no line items.
func (a *Aggregate) IsEmpty() bool { return len(a.items) == 0 }

// TotalQuantity sums quantities across all lines.
func (a *Aggregate) TotalQuantity() int {
	var n int
	for _, li := range a.items {
		n += li.Quantity
	}
	return n
}

// AddItem appends a line item or, when the identity already exists,
// increments its quantity. The cumulative quantity is clamped to the
// per-item max; a mutation that would exceed the cart-wide cap is rejected
// whole with ErrCapacityExceeded.
func (a *Aggregate) AddItem(item LineItem, qty int) error {
	if item.ID == "" || qty <= 0 {
		return ErrInvalidInput
	}
	idx := a.indexOf(item.ID)
	var current int
	if idx >= 0 {
		current = a.items[idx].Quantity
	}
	next := current + qty
	if next > a.policy.PerItemMax {
		next = a.policy.PerItemMax
	}
	if a.TotalQuantity()-current+next > a.policy.CartMax {
		return ErrCapacityExceeded
	}
	if idx >= 0 {
		a.items[idx].Quantity = next
	} else {
		item.Quantity = next
		a.items = append(a.items, item)
	}
	a.Recompute()
	return nil
}

// SetQuantity sets a line's quantity, clamped to [1, perItemMax]. A change
// that would push the cart-wide total over the cap is rejected and the
// quantity left unchanged.
func (a *Aggregate) SetQuantity(itemID string, qty int) error {
	idx := a.indexOf(itemID)
	if idx < 0 {
		return ErrItemNotFound
	}
	if qty < 1 {
		qty = 1
	}
	if qty > a.policy.PerItemMax {
		qty = a.policy.PerItemMax
	}
	if a.TotalQuantity()-a.items[idx].Quantity+qty > a.policy.CartMax {
		return ErrCapacityExceeded
	}
	a.items[idx].Quantity = qty
	a.Recompute()
	return nil
}

// RemoveItem removes a line item. The recompute re-derives the discount and
// delivery fee against the reduced subtotal.
func (a *Aggregate) RemoveItem(itemID string) error {
	idx := a.indexOf(itemID)
	if idx < 0 {
		return ErrItemNotFound
	}
	a.items = append(a.items[:idx], a.items[idx+1:]...)
	a.Recompute()
	return nil
}

// AttachDiscount stores a validated rule. A rule that is already attached is
// never replaced: callers must ClearDiscount first. The applied amount is
// derived at recompute time, not here.
func (a *Aggregate) AttachDiscount(rule discount.Rule) error {
	if rule.Code == "" {
		return ErrInvalidInput
	}
	if a.rule != nil {
		return ErrDiscountAlreadyApplied
	}
	a.rule = &rule
	a.Recompute()
	return nil
}

// ClearDiscount removes the attached rule.
func (a *Aggregate) ClearDiscount() {
	a.rule = nil
	a.Recompute()
}

// SetDelivery stores the resolved delivery selection.
func (a *Aggregate) SetDelivery(info DeliveryInfo) error {
	if info.Country == "" || info.MethodID == "" {
		return ErrInvalidInput
	}
	a.delivery = &info
	a.Recompute()
	return nil
}

// ClearDelivery removes the delivery selection; the fee reverts to zero in
// the derived total until a new selection is made.
func (a *Aggregate) ClearDelivery() {
	a.delivery = nil
	a.Recompute()
}

// Clear resets the aggregate to empty.
func (a *Aggregate) Clear() {
	a.items = nil
	a.rule = nil
	a.delivery = nil
	a.Recompute()
}

// Recompute derives all totals from primary state. Idempotent: calling it
// twice with no intervening mutation yields identical totals.
func (a *Aggregate) Recompute() {
	items := make([]pricing.Item, 0, len(a.items))
	var subtotal pricing.Money
	for _, li := range a.items {
		items = append(items, pricing.Item{Qty: li.Quantity, UnitPrice: li.UnitPriceCents()})
		subtotal += li.SubtotalCents()
	}
	var disc pricing.Money
	if a.rule != nil {
		disc = a.rule.Apply(subtotal)
	}
	basis := subtotal
	if a.policy.FreeShippingBasis == delivery.BasisPostDiscount {
		capped := disc
		if capped > subtotal {
			capped = subtotal
		}
		basis = pricing.ClampNonNegative(subtotal - capped)
	}
	var fee pricing.Money
	if a.delivery != nil {
		method := delivery.Method{Price: a.delivery.Price, FreeEligible: a.delivery.FreeEligible}
		fee = delivery.ResolveFee(method, a.delivery.FreeThreshold, basis)
	}
	s := pricing.Compute(items, disc, fee)
	a.totals = Totals{
		SubtotalCents:           s.Subtotal,
		DiscountCents:           s.Discount,
		PriceAfterDiscountCents: s.PriceAfterDiscount,
		DeliveryFeeCents:        s.DeliveryFee,
		TotalCents:              s.Total,
	}
}

func (a *Aggregate) indexOf(itemID string) int {
	for i, li := range a.items {
		if li.ID == itemID {
			return i
		}
	}
	return -1
}
