// Package service registers merchants against the bank reference table and
// answers directory lookups.
package service

import (
	"context"
	"errors"
	"log/slog"

	"voucher-ledger/internal/merchant/models"
	"voucher-ledger/internal/merchant/store"
	domainerrors "voucher-ledger/pkg/domain-errors"
	"voucher-ledger/pkg/platform/sentinel"
	"voucher-ledger/pkg/requestcontext"
)

// Service is the merchant directory.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

// NewService constructs the merchant directory.
func NewService(store store.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Register validates the registration, including the bank details against the
// reference table, and stores the merchant under a generated ID.
func (s *Service) Register(ctx context.Context, reg models.Registration) (*models.Merchant, error) {
	merchant, err := models.New(reg, requestcontext.Now(ctx))
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeBadRequest, "invalid merchant registration")
	}
	if err := s.store.Create(ctx, merchant); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, domainerrors.New(domainerrors.CodeConflict, "merchant already registered")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to register merchant")
	}
	s.logger.InfoContext(ctx, "merchant registered",
		"request_id", requestcontext.RequestID(ctx),
		"merchant_id", merchant.ID,
		"merchant_name", merchant.Name,
	)
	return merchant, nil
}

// Get returns a merchant by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Merchant, error) {
	if id == "" {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "merchant id is required")
	}
	merchant, err := s.store.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "merchant not found")
	}
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to load merchant")
	}
	return merchant, nil
}

// Banks returns the bank reference table registrations are validated against.
func (s *Service) Banks(_ context.Context) []models.BankBranch {
	return models.BankDirectory
}
