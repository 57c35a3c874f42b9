package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/abanremit/mpesa-relay/internal/domain"
	"github.com/abanremit/mpesa-relay/internal/logging"
)

type transactionReader interface {
	GetByCheckoutID(ctx context.Context, checkoutRequestID string) (*domain.Transaction, error)
}

type walletReader interface {
	Get(ctx context.Context, ownerID string) (*domain.Wallet, error)
}

// TransactionHandler serves the polling surface the client app uses to
// observe a deposit's eventual outcome.
type TransactionHandler struct {
	transactions transactionReader
	wallets      walletReader
}

func NewTransactionHandler(transactions transactionReader, wallets walletReader) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, wallets: wallets}
}

type transactionResponse struct {
	CheckoutRequestID string          `json:"checkoutRequestId"`
	OwnerID           string          `json:"ownerId"`
	Amount            decimal.Decimal `json:"amount"`
	Status            string          `json:"status"`
	ResultCode        *int            `json:"resultCode,omitempty"`
	ResultDesc        *string         `json:"resultDesc,omitempty"`
	MpesaReceipt      *string         `json:"mpesaReceipt,omitempty"`
	CompletedAt       *time.Time      `json:"completedAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	checkoutID := r.PathValue("checkoutRequestId")
	txn, err := h.transactions.GetByCheckoutID(r.Context(), checkoutID)
	if err != nil {
		log.Warn("transaction lookup failed", "checkout_request_id", checkoutID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, transactionResponse{
		CheckoutRequestID: txn.CheckoutRequestID,
		OwnerID:           txn.OwnerID,
		Amount:            txn.Amount,
		Status:            string(txn.Status),
		ResultCode:        txn.ResultCode,
		ResultDesc:        txn.ResultDesc,
		MpesaReceipt:      txn.MpesaReceipt,
		CompletedAt:       txn.CompletedAt,
		CreatedAt:         txn.CreatedAt,
	})
}

type walletResponse struct {
	OwnerID string          `json:"ownerId"`
	Balance decimal.Decimal `json:"balance"`
}

func (h *TransactionHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	ownerID := r.PathValue("ownerId")
	wallet, err := h.wallets.Get(r.Context(), ownerID)
	if err != nil {
		log.Warn("wallet lookup failed", "owner_id", ownerID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, walletResponse{
		OwnerID: wallet.OwnerID,
		Balance: wallet.Balance,
	})
}
