// Package handler exposes tranche issuance over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"voucher-ledger/internal/platform/middleware"
	"voucher-ledger/internal/transport/http/shared"
	vouchermodels "voucher-ledger/internal/voucher/models"
	domainerrors "voucher-ledger/pkg/domain-errors"
)

// Service defines the issuance operation the handler needs.
type Service interface {
	Issue(ctx context.Context, householdID, tranche string) ([]*vouchermodels.Voucher, error)
}

type issueRequest struct {
	Tranche string `json:"tranche"`
}

type issueResponse struct {
	HouseholdID string                   `json:"household_id"`
	Tranche     string                   `json:"tranche"`
	Vouchers    []*vouchermodels.Voucher `json:"vouchers"`
	TotalValue  int                      `json:"total_value"`
}

// Handler handles issuance endpoints.
type Handler struct {
	allocator Service
	logger    *slog.Logger
}

// New creates the issuance Handler.
func New(allocator Service, logger *slog.Logger) *Handler {
	return &Handler{allocator: allocator, logger: logger}
}

// Register mounts the issuance route.
func (h *Handler) Register(r chi.Router) {
	r.Post("/households/{householdID}/issue", h.handleIssue)
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	householdID := chi.URLParam(r, "householdID")

	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid issue request body",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	vouchers, err := h.allocator.Issue(ctx, householdID, req.Tranche)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	total := 0
	for _, v := range vouchers {
		total += int(v.Denomination)
	}
	shared.WriteJSON(w, http.StatusCreated, issueResponse{
		HouseholdID: householdID,
		Tranche:     req.Tranche,
		Vouchers:    vouchers,
		TotalValue:  total,
	})
}
