package service

import (
	"context"
	"fmt"
	"time"

	"threadloom/internal/model"
	"threadloom/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// cartService implements CartService.
type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, logger zerolog.Logger) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

// View returns the cart lines with subtotals and the cart total.
func (s *cartService) View(ctx context.Context, userID uuid.UUID) (*model.CartView, error) {
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	lines, total := cartLines(items)
	return &model.CartView{Items: lines, TotalPrice: total}, nil
}

// Add puts quantity units of a listed product in the cart at its current price.
func (s *cartService) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	if !validQuantity(quantity) {
		return model.ErrInvalidQuantity
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil || product.IsUnlisted {
		return model.ErrProductNotFound
	}

	item := &model.CartItem{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		Price:     product.Price,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.cartRepo.Upsert(ctx, item); err != nil {
		return err
	}

	s.logger.Debug().
		Str("user_id", userID.String()).
		Str("product_id", productID.String()).
		Int("quantity", item.Quantity).
		Msg("cart item added")
	return nil
}

func validQuantity(quantity int) bool {
	return quantity >= 1 && quantity <= model.MaxItemQuantity
}

func (s *cartService) Update(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	if !validQuantity(quantity) {
		return model.ErrInvalidQuantity
	}
	return s.cartRepo.UpdateQuantity(ctx, userID, productID, quantity)
}

func (s *cartService) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	return s.cartRepo.Remove(ctx, userID, productID)
}
