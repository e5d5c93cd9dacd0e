package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"threadloom/internal/model"
	"threadloom/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type addressService struct {
	addressRepo repository.AddressRepository
	logger      zerolog.Logger
}

// NewAddressService creates a new address book service.
func NewAddressService(addressRepo repository.AddressRepository, logger zerolog.Logger) AddressService {
	return &addressService{
		addressRepo: addressRepo,
		logger:      logger.With().Str("service", "address").Logger(),
	}
}

func (s *addressService) List(ctx context.Context, userID uuid.UUID) ([]model.Address, error) {
	addresses, err := s.addressRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load addresses: %w", err)
	}
	return addresses, nil
}

func (s *addressService) Add(ctx context.Context, userID uuid.UUID, req *model.AddressRequest) (*model.Address, error) {
	address := &model.Address{
		ID:         uuid.New(),
		UserID:     userID,
		FullName:   strings.TrimSpace(req.FullName),
		Phone:      strings.TrimSpace(req.Phone),
		Line1:      strings.TrimSpace(req.Line1),
		Line2:      strings.TrimSpace(req.Line2),
		City:       strings.TrimSpace(req.City),
		State:      strings.TrimSpace(req.State),
		PostalCode: strings.TrimSpace(req.PostalCode),
		Country:    strings.TrimSpace(req.Country),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.addressRepo.Create(ctx, address); err != nil {
		return nil, err
	}
	s.logger.Debug().Str("user_id", userID.String()).Str("address_id", address.ID.String()).Msg("address added")
	return address, nil
}
