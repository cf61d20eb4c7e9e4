// Package handler exposes the redemption flow over HTTP: staging a selection,
// confirming it at a merchant, and the household balance and history queries.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"voucher-ledger/internal/pending"
	"voucher-ledger/internal/platform/middleware"
	"voucher-ledger/internal/settlement/models"
	"voucher-ledger/internal/transport/http/shared"
	vouchermodels "voucher-ledger/internal/voucher/models"
	domainerrors "voucher-ledger/pkg/domain-errors"
)

// Settlement defines the settlement operations the handler needs.
type Settlement interface {
	ConfirmRedemption(ctx context.Context, householdID, merchantID string, selections map[vouchermodels.Denomination]int) (*models.RedemptionTransaction, error)
	ActiveVouchers(ctx context.Context, householdID string) ([]*vouchermodels.Voucher, error)
	History(ctx context.Context, householdID string) ([]*models.RedemptionTransaction, error)
}

// Exchange defines the pending-redemption operations the handler needs.
type Exchange interface {
	Stage(ctx context.Context, householdID string, selections map[vouchermodels.Denomination]int) (*pending.Request, error)
	Claim(ctx context.Context, code string) (*pending.Request, error)
	Restage(ctx context.Context, req *pending.Request) error
	TTL() time.Duration
}

type stageRequest struct {
	HouseholdID string                             `json:"household_id"`
	Selections  map[vouchermodels.Denomination]int `json:"selections"`
}

type stageResponse struct {
	Code      string `json:"code"`
	Total     int    `json:"total"`
	ExpiresAt string `json:"expires_at"`
}

type confirmRequest struct {
	Code       string `json:"code"`
	MerchantID string `json:"merchant_id"`
}

type balanceResponse struct {
	HouseholdID string                             `json:"household_id"`
	Balance     int                                `json:"balance"`
	Counts      map[vouchermodels.Denomination]int `json:"counts"`
	Vouchers    []*vouchermodels.Voucher           `json:"vouchers"`
}

type historyResponse struct {
	HouseholdID  string                          `json:"household_id"`
	Transactions []*models.RedemptionTransaction `json:"transactions"`
}

// Handler handles redemption endpoints.
type Handler struct {
	settlement Settlement
	exchange   Exchange
	logger     *slog.Logger
}

// New creates the redemption Handler.
func New(settlement Settlement, exchange Exchange, logger *slog.Logger) *Handler {
	return &Handler{settlement: settlement, exchange: exchange, logger: logger}
}

// Register mounts the redemption routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/redemptions/stage", h.handleStage)
	r.Post("/redemptions/confirm", h.handleConfirm)
	r.Get("/households/{householdID}/vouchers", h.handleVouchers)
	r.Get("/households/{householdID}/history", h.handleHistory)
}

func (h *Handler) handleStage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req stageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid stage request body",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	// Staging only quotes: the selection is checked against the ledger when
	// the merchant confirms.
	staged, err := h.exchange.Stage(ctx, req.HouseholdID, req.Selections)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, stageResponse{
		Code:      staged.Code,
		Total:     staged.Total,
		ExpiresAt: staged.ExpiresAt(h.exchange.TTL()).Format(time.RFC3339),
	})
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid confirm request body",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	// Claiming removes the code before anything settles, so of two confirms
	// racing on the same code exactly one proceeds; the loser sees not found.
	staged, err := h.exchange.Claim(ctx, req.Code)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	tx, err := h.settlement.ConfirmRedemption(ctx, staged.HouseholdID, req.MerchantID, staged.Selections)
	if err != nil {
		// Nothing settled; put the code back so the household can retry.
		if rerr := h.exchange.Restage(ctx, staged); rerr != nil {
			h.logger.WarnContext(ctx, "failed to restage redemption code",
				"request_id", middleware.GetRequestID(ctx),
				"code", staged.Code,
				"error", rerr.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, tx)
}

func (h *Handler) handleVouchers(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")
	vouchers, err := h.settlement.ActiveVouchers(r.Context(), householdID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	counts := make(map[vouchermodels.Denomination]int)
	balance := 0
	for _, v := range vouchers {
		counts[v.Denomination]++
		balance += int(v.Denomination)
	}
	shared.WriteJSON(w, http.StatusOK, balanceResponse{
		HouseholdID: householdID,
		Balance:     balance,
		Counts:      counts,
		Vouchers:    vouchers,
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "householdID")
	history, err := h.settlement.History(r.Context(), householdID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, historyResponse{
		HouseholdID:  householdID,
		Transactions: history,
	})
}
