package cart

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/wichananm65/cart-api-backend/internal/product"
)

var ErrInvalidItem = errors.New("invalid cart item")

// Service orchestrates cart operations and enriches stored line items with
// live catalog data on every external read.
type Service struct {
	repo        Repository
	catalog     product.Fetcher
	enrichLimit int
}

func NewService(repo Repository, catalog product.Fetcher) *Service {
	return &Service{
		repo:        repo,
		catalog:     catalog,
		enrichLimit: 10,
	}
}

// Open returns the user's enriched OPEN cart, or nil if none exists.
func (s *Service) Open(ctx context.Context, userID string) (*EnrichedCart, error) {
	c, err := s.repo.Open(ctx, userID)
	if err != nil || c == nil {
		return nil, err
	}
	return s.enrichCart(ctx, c), nil
}

// GetOrCreate returns the user's enriched OPEN cart, lazily creating an empty
// one on first access.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*EnrichedCart, error) {
	c, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return s.enrichCart(ctx, c), nil
}

// UpdateItem sets the quantity for a product in the user's OPEN cart (creating
// the cart if needed). Quantity zero removes the line; negative quantities are
// rejected.
func (s *Service) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*EnrichedCart, error) {
	if productID == "" || quantity < 0 {
		return nil, ErrInvalidItem
	}

	c, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}

	if err := s.repo.UpsertItem(ctx, c.ID, productID, quantity); err != nil {
		return nil, err
	}

	updated, err := s.repo.Open(ctx, userID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return s.enrichCart(ctx, updated), nil
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.repo.Clear(ctx, userID)
}

func (s *Service) enrichCart(ctx context.Context, c *Cart) *EnrichedCart {
	return &EnrichedCart{
		ID:        c.ID,
		UserID:    c.UserID,
		Status:    c.Status,
		Items:     s.enrich(ctx, c.Items),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// enrich fans out one catalog lookup per line item and joins before returning.
// A failed lookup drops that item from the view; it never fails the request.
func (s *Service) enrich(ctx context.Context, items []Item) []EnrichedItem {
	resolved := make([]*product.Product, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.enrichLimit)
	for idx := range items {
		idx := idx
		g.Go(func() error {
			p, ok := s.catalog.Fetch(ctx, items[idx].ProductID)
			if !ok {
				log.Warn().Str("product_id", items[idx].ProductID).Msg("dropping unresolved cart item")
				return nil
			}
			resolved[idx] = &p
			return nil
		})
	}
	// workers absorb their own failures, so Wait only joins
	_ = g.Wait()

	out := make([]EnrichedItem, 0, len(items))
	for idx, p := range resolved {
		if p == nil {
			continue
		}
		out = append(out, EnrichedItem{Product: *p, Count: items[idx].Quantity})
	}
	return out
}
