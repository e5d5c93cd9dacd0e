package service

import (
	"context"
	"fmt"

	"threadloom/internal/model"
	"threadloom/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type wishlistService struct {
	wishlistRepo repository.WishlistRepository
	logger       zerolog.Logger
}

// NewWishlistService creates a new wishlist service.
func NewWishlistService(wishlistRepo repository.WishlistRepository, logger zerolog.Logger) WishlistService {
	return &wishlistService{
		wishlistRepo: wishlistRepo,
		logger:       logger.With().Str("service", "wishlist").Logger(),
	}
}

func (s *wishlistService) List(ctx context.Context, userID uuid.UUID) ([]model.WishlistItem, error) {
	items, err := s.wishlistRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wishlist: %w", err)
	}
	return items, nil
}

func (s *wishlistService) Add(ctx context.Context, userID, productID uuid.UUID) error {
	return s.wishlistRepo.Add(ctx, userID, productID)
}

func (s *wishlistService) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	return s.wishlistRepo.Remove(ctx, userID, productID)
}

func (s *wishlistService) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.wishlistRepo.Clear(ctx, userID); err != nil {
		return err
	}
	s.logger.Debug().Str("user_id", userID.String()).Msg("wishlist cleared")
	return nil
}
