package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/abanremit/mpesa-relay/internal/logging"
	"github.com/abanremit/mpesa-relay/internal/service"
)

type depositService interface {
	Initiate(ctx context.Context, req service.DepositRequest) (*service.DepositResult, error)
}

type STKPushHandler struct {
	deposits depositService
}

func NewSTKPushHandler(deposits depositService) *STKPushHandler {
	return &STKPushHandler{deposits: deposits}
}

type stkPushRequest struct {
	Phone   string          `json:"phone"`
	Amount  decimal.Decimal `json:"amount"`
	OwnerID string          `json:"ownerId"`
}

func (r stkPushRequest) validate() []FieldError {
	var errs []FieldError
	if r.OwnerID == "" {
		errs = append(errs, FieldError{Field: "ownerId", Message: "required"})
	}
	if r.Phone == "" {
		errs = append(errs, FieldError{Field: "phone", Message: "required"})
	}
	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than zero"})
	}
	return errs
}

type stkPushResponse struct {
	CheckoutRequestID string `json:"checkoutRequestId"`
	MerchantRequestID string `json:"merchantRequestId"`
	CustomerMessage   string `json:"customerMessage,omitempty"`
}

// InitiateDeposit accepts a deposit intent and fires the push prompt. A
// 200 here means the attempt was accepted by the gateway; completion is
// only known once the callback lands.
func (h *STKPushHandler) InitiateDeposit(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req stkPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse deposit request", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	result, err := h.deposits.Initiate(r.Context(), service.DepositRequest{
		OwnerID: req.OwnerID,
		Phone:   req.Phone,
		Amount:  req.Amount,
	})
	if err != nil {
		log.Warn("deposit initiation failed", "owner_id", req.OwnerID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, stkPushResponse{
		CheckoutRequestID: result.CheckoutRequestID,
		MerchantRequestID: result.MerchantRequestID,
		CustomerMessage:   result.CustomerMessage,
	})
}
