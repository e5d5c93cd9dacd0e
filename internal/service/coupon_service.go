package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"threadloom/internal/model"
	"threadloom/internal/pricing"
	"threadloom/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// couponService implements CouponService.
type couponService struct {
	couponRepo repository.CouponRepository
	cartRepo   repository.CartRepository
	logger     zerolog.Logger
	now        func() time.Time
}

// NewCouponService creates a new coupon service.
func NewCouponService(couponRepo repository.CouponRepository, cartRepo repository.CartRepository, logger zerolog.Logger) CouponService {
	return &couponService{
		couponRepo: couponRepo,
		cartRepo:   cartRepo,
		logger:     logger.With().Str("service", "coupon").Logger(),
		now:        time.Now,
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *couponService) List(ctx context.Context) ([]model.Coupon, error) {
	coupons, err := s.couponRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	return coupons, nil
}

// Create stores a new active coupon. Codes are case-insensitive and kept upper case.
func (s *couponService) Create(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error) {
	now := s.now().UTC()
	if !req.ExpiresAt.After(now) {
		return nil, model.ErrCouponExpired
	}

	coupon := &model.Coupon{
		ID:              uuid.New(),
		Code:            normalizeCode(req.Code),
		DiscountPercent: req.DiscountPercent,
		MaxDiscount:     req.MaxDiscount,
		MinPurchase:     req.MinPurchase,
		ExpiresAt:       req.ExpiresAt.UTC(),
		IsActive:        true,
		CreatedAt:       now,
	}
	if err := s.couponRepo.Create(ctx, coupon); err != nil {
		return nil, err
	}

	s.logger.Info().Str("code", coupon.Code).Int("percent", coupon.DiscountPercent).Msg("coupon created")
	return coupon, nil
}

func (s *couponService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.couponRepo.Delete(ctx, id)
}

// Apply prices the user's current cart with the coupon. Nothing is stored.
func (s *couponService) Apply(ctx context.Context, userID uuid.UUID, code string) (*model.CouponQuote, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, model.ErrCouponNotFound
	}

	coupon, err := s.couponRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}
	if coupon == nil || !coupon.IsActive {
		s.logger.Debug().Str("code", code).Msg("coupon not found")
		return nil, model.ErrCouponNotFound
	}
	if !s.now().Before(coupon.ExpiresAt) {
		return nil, model.ErrCouponExpired
	}

	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, model.ErrEmptyCart
	}
	_, subtotal := cartLines(items)

	if subtotal < coupon.MinPurchase {
		s.logger.Debug().
			Str("code", code).
			Float64("subtotal", subtotal).
			Float64("min_purchase", coupon.MinPurchase).
			Msg("cart below coupon minimum")
		return nil, model.ErrCouponMinPurchase
	}

	discount := pricing.Discount(subtotal, coupon.DiscountPercent, coupon.MaxDiscount)
	return &model.CouponQuote{
		Code:     coupon.Code,
		Subtotal: subtotal,
		Discount: discount,
		Total:    pricing.Subtract(subtotal, discount),
	}, nil
}
