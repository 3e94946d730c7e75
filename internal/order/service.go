package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

var ErrInvalidStatus = errors.New("invalid order status")

// Service verifies ownership and drives post-creation lifecycle transitions.
// Cross-user access is reported as not-found rather than forbidden, so order
// ids are never confirmed to non-owners.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, userID, orderID string) (*Order, error) {
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	if o == nil || o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// UpdateStatus appends exactly one history entry per transition. Any
// non-empty status string is accepted; the business rules are intentionally
// permissive about which transitions are legal.
func (s *Service) UpdateStatus(ctx context.Context, userID, orderID string, status Status, comment string) (*Order, error) {
	if status == "" {
		return nil, ErrInvalidStatus
	}

	if _, err := s.Get(ctx, userID, orderID); err != nil {
		return nil, err
	}

	if err := s.repo.AppendStatus(ctx, orderID, status, comment); err != nil {
		log.Error().Err(err).Str("order_id", orderID).Str("status", string(status)).Msg("failed to append order status")
		return nil, err
	}

	return s.Get(ctx, userID, orderID)
}

func (s *Service) Delete(ctx context.Context, userID, orderID string) error {
	if _, err := s.Get(ctx, userID, orderID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, orderID)
}
