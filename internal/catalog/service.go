package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// ErrProductNotFound indicates the requested product is absent or unpublished.
var ErrProductNotFound = errors.New("product not found")

// Product is a purchasable catalog entry. The cart snapshots Price at
// add-time and never re-reads it.
type Product struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Published   bool    `json:"published"`
}

// Price is the add-time snapshot handed to the cart.
type Price struct {
	UnitPrice float64
	Currency  string
	Title     string
}

// PriceSource is the boundary the cart consumes at add-time.
type PriceSource interface {
	GetItemPrice(ctx context.Context, itemID string) (Price, error)
}

// Store is the catalog persistence boundary.
type Store interface {
	GetProduct(ctx context.Context, id string) (Product, error)
	ListPublished(ctx context.Context) ([]Product, error)
}

// Service wraps the store with the storefront's listing behavior.
type Service struct {
	Store Store
}

// GetItemPrice implements PriceSource for the cart.
func (s *Service) GetItemPrice(ctx context.Context, itemID string) (Price, error) {
	if s == nil || s.Store == nil {
		return Price{}, errors.New("catalog service not configured")
	}
	p, err := s.Store.GetProduct(ctx, itemID)
	if err != nil {
		return Price{}, err
	}
	if !p.Published {
		return Price{}, ErrProductNotFound
	}
	return Price{UnitPrice: p.Price, Currency: p.Currency, Title: p.Title}, nil
}

// Search lists published products. With a keyword it scores each product by
// the number of keyword occurrences in title and description and drops
// non-matches. This is a simple occurrence counter, not a search index.
func (s *Service) Search(ctx context.Context, keyword string) ([]Product, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("catalog service not configured")
	}
	products, err := s.Store.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return products, nil
	}
	type scored struct {
		p     Product
		score int
	}
	matches := make([]scored, 0, len(products))
	for _, p := range products {
		score := strings.Count(strings.ToLower(p.Title), keyword)*2 +
			strings.Count(strings.ToLower(p.Description), keyword)
		if score > 0 {
			matches = append(matches, scored{p: p, score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	out := make([]Product, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.p)
	}
	return out, nil
}
