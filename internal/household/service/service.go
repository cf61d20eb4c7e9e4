// Package service registers households and answers directory lookups.
package service

import (
	"context"
	"errors"
	"log/slog"

	"voucher-ledger/internal/household/models"
	"voucher-ledger/internal/household/store"
	domainerrors "voucher-ledger/pkg/domain-errors"
	"voucher-ledger/pkg/platform/sentinel"
	"voucher-ledger/pkg/requestcontext"
)

// Service is the household directory.
type Service struct {
	store    store.Store
	tranches []string
	logger   *slog.Logger
}

// NewService constructs the directory. tranches are the labels a new
// household's claim map is seeded with.
func NewService(store store.Store, tranches []string, logger *slog.Logger) *Service {
	return &Service{store: store, tranches: tranches, logger: logger}
}

// Register creates a household with every configured tranche unclaimed.
func (s *Service) Register(ctx context.Context, id string, info map[string]string) (*models.Household, error) {
	household, err := models.New(id, info, s.tranches, requestcontext.Now(ctx))
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeBadRequest, "invalid household registration")
	}
	if err := s.store.Create(ctx, household); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, domainerrors.New(domainerrors.CodeConflict, "household already registered")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to register household")
	}
	s.logger.InfoContext(ctx, "household registered",
		"request_id", requestcontext.RequestID(ctx),
		"household_id", household.ID,
	)
	return household, nil
}

// Get returns a household by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Household, error) {
	if id == "" {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "household id is required")
	}
	household, err := s.store.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "household not found")
	}
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to load household")
	}
	return household, nil
}
