// Package handler exposes household registration and lookup over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"voucher-ledger/internal/household/models"
	"voucher-ledger/internal/platform/middleware"
	"voucher-ledger/internal/transport/http/shared"
	domainerrors "voucher-ledger/pkg/domain-errors"
)

// Service defines the household operations the handler needs.
type Service interface {
	Register(ctx context.Context, id string, info map[string]string) (*models.Household, error)
	Get(ctx context.Context, id string) (*models.Household, error)
}

type registerRequest struct {
	HouseholdID string            `json:"household_id"`
	Info        map[string]string `json:"info,omitempty"`
}

// Handler handles household endpoints.
type Handler struct {
	households Service
	logger     *slog.Logger
}

// New creates the household Handler.
func New(households Service, logger *slog.Logger) *Handler {
	return &Handler{households: households, logger: logger}
}

// Register mounts the household routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/households", h.handleRegister)
	r.Get("/households/{householdID}", h.handleGet)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid household registration body",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	household, err := h.households.Register(ctx, req.HouseholdID, req.Info)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, household)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	household, err := h.households.Get(r.Context(), chi.URLParam(r, "householdID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, household)
}
