// Package handler exposes merchant registration and the bank reference table
// over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"voucher-ledger/internal/merchant/models"
	"voucher-ledger/internal/platform/middleware"
	"voucher-ledger/internal/transport/http/shared"
	domainerrors "voucher-ledger/pkg/domain-errors"
)

// Service defines the merchant operations the handler needs.
type Service interface {
	Register(ctx context.Context, reg models.Registration) (*models.Merchant, error)
	Get(ctx context.Context, id string) (*models.Merchant, error)
	Banks(ctx context.Context) []models.BankBranch
}

// Handler handles merchant endpoints.
type Handler struct {
	merchants Service
	logger    *slog.Logger
}

// New creates the merchant Handler.
func New(merchants Service, logger *slog.Logger) *Handler {
	return &Handler{merchants: merchants, logger: logger}
}

// Register mounts the merchant routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/merchants", h.handleRegister)
	r.Get("/merchants/{merchantID}", h.handleGet)
	r.Get("/banks", h.handleBanks)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		h.logger.WarnContext(ctx, "invalid merchant registration body",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	merchant, err := h.merchants.Register(ctx, reg)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, merchant)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	merchant, err := h.merchants.Get(r.Context(), chi.URLParam(r, "merchantID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, merchant)
}

func (h *Handler) handleBanks(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"banks": h.merchants.Banks(r.Context()),
	})
}
