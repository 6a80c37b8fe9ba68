package order

import (
	"context"
	"errors"
	"time"

	"github.com/mossery/storefront-api/internal/pricing"
)

// ErrNotFound indicates the order does not exist.
var ErrNotFound = errors.New("order not found")

// StatusPlaced is the status a freshly checked-out order carries.
const StatusPlaced = "placed"

// Item is an order line, frozen from the cart at checkout.
type Item struct {
	ProductID string  `json:"productId"`
	Title     string  `json:"title,omitempty"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

// Order is the immutable record written at checkout. The totals are copied
// verbatim from the cart's derived breakdown, never recomputed afterwards.
type Order struct {
	ID                      string        `json:"id"`
	SessionID               string        `json:"sessionId"`
	Email                   string        `json:"email,omitempty"`
	Status                  string        `json:"status"`
	Currency                string        `json:"currency,omitempty"`
	DiscountCode            string        `json:"discountCode,omitempty"`
	Country                 string        `json:"countryCode,omitempty"`
	MethodID                string        `json:"methodId,omitempty"`
	PostalCode              string        `json:"postalCode,omitempty"`
	Region                  string        `json:"region,omitempty"`
	SubtotalCents           pricing.Money `json:"subtotalCents"`
	DiscountCents           pricing.Money `json:"discountCents"`
	PriceAfterDiscountCents pricing.Money `json:"priceAfterDiscountCents"`
	DeliveryFeeCents        pricing.Money `json:"deliveryFeeCents"`
	TotalCents              pricing.Money `json:"totalCents"`
	CreatedAt               time.Time     `json:"createdAt"`
	Items                   []Item        `json:"items"`
}

// Total returns the decimal charge amount.
func (o Order) Total() float64 { return pricing.FromMinorUnits(o.TotalCents) }

// Store is the order persistence boundary. Insert writes the order and its
// items atomically.
type Store interface {
	Insert(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, error)
	ListBySession(ctx context.Context, sessionID string) ([]Order, error)
}
