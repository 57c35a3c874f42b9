package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abanremit/mpesa-relay/internal/daraja"
	"github.com/abanremit/mpesa-relay/internal/domain"
	"github.com/abanremit/mpesa-relay/internal/logging"
)

type reconcileTransactionRepo interface {
	GetByCheckoutID(ctx context.Context, checkoutRequestID string) (*domain.Transaction, error)
	Complete(ctx context.Context, tx *sql.Tx, id uuid.UUID, resultCode int, resultDesc string, receipt *string, completedAt time.Time) error
	Fail(ctx context.Context, id uuid.UUID, resultCode int, resultDesc string) error
}

type reconcileWalletRepo interface {
	Credit(ctx context.Context, tx *sql.Tx, ownerID string, amount decimal.Decimal) error
}

type ReconcileService struct {
	transactions reconcileTransactionRepo
	wallets      reconcileWalletRepo
	db           *sql.DB
}

func NewReconcileService(transactions reconcileTransactionRepo, wallets reconcileWalletRepo, db *sql.DB) *ReconcileService {
	return &ReconcileService{transactions: transactions, wallets: wallets, db: db}
}

// Ack is what the gateway's retry logic reads back: ResultCode 0 tells it
// delivery succeeded, 1 asks it to try again later.
type Ack struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

var (
	ackAccepted = Ack{ResultCode: 0, ResultDesc: "Accepted"}
	ackRetry    = Ack{ResultCode: 1, ResultDesc: "Internal error, retry delivery"}
)

// Reconcile applies one callback delivery. The gateway delivers at least
// once and out of order; every path except a genuine persistence outage
// resolves to an accepted acknowledgment so its retry budget is not abused.
// The returned error, when non-nil, is for observability - the Ack alone
// decides the wire response.
func (s *ReconcileService) Reconcile(ctx context.Context, cb *daraja.STKCallback) (Ack, error) {
	log := logging.FromContext(ctx)

	txn, err := s.transactions.GetByCheckoutID(ctx, cb.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Attempt this instance never created (stale deployment, foreign
			// shortcode, or a record cleaned up after a push timeout).
			log.Warn("callback for unknown checkout id", "checkout_request_id", cb.CheckoutRequestID)
			return ackAccepted, nil
		}
		return ackRetry, fmt.Errorf("Reconcile: lookup: %w", err)
	}

	if txn.Status.Terminal() {
		log.Info("duplicate callback, transaction already terminal",
			"transaction_id", txn.ID,
			"status", txn.Status,
		)
		return ackAccepted, nil
	}

	if cb.ResultCode != 0 {
		return s.reconcileFailure(ctx, txn, cb)
	}
	return s.reconcileSuccess(ctx, txn, cb)
}

func (s *ReconcileService) reconcileSuccess(ctx context.Context, txn *domain.Transaction, cb *daraja.STKCallback) (Ack, error) {
	log := logging.FromContext(ctx)

	var receipt *string
	if r, ok := cb.ReceiptNumber(); ok {
		receipt = &r
	}
	completedAt := time.Now().UTC()
	if d, ok := cb.TransactionDate(); ok {
		completedAt = d
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ackRetry, fmt.Errorf("reconcileSuccess: begin tx: %w", err)
	}
	defer tx.Rollback()

	// The status guard and the credit commit together or not at all: two
	// concurrent deliveries cannot both reach the credit.
	err = s.transactions.Complete(ctx, tx, txn.ID, int(cb.ResultCode), cb.ResultDesc, receipt, completedAt)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyTerminal) {
			log.Info("lost completion race, no-op", "transaction_id", txn.ID)
			return ackAccepted, nil
		}
		return ackRetry, fmt.Errorf("reconcileSuccess: %w", err)
	}

	if err := s.wallets.Credit(ctx, tx, txn.OwnerID, txn.Amount); err != nil {
		return ackRetry, fmt.Errorf("reconcileSuccess: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ackRetry, fmt.Errorf("reconcileSuccess: commit: %w", err)
	}

	log.Info("deposit completed",
		"transaction_id", txn.ID,
		"owner_id", txn.OwnerID,
		"amount", txn.Amount,
		"receipt", receipt,
	)
	return ackAccepted, nil
}

func (s *ReconcileService) reconcileFailure(ctx context.Context, txn *domain.Transaction, cb *daraja.STKCallback) (Ack, error) {
	log := logging.FromContext(ctx)

	err := s.transactions.Fail(ctx, txn.ID, int(cb.ResultCode), cb.ResultDesc)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyTerminal) {
			log.Info("lost failure race, no-op", "transaction_id", txn.ID)
			return ackAccepted, nil
		}
		return ackRetry, fmt.Errorf("reconcileFailure: %w", err)
	}

	log.Info("deposit failed",
		"transaction_id", txn.ID,
		"result_code", int(cb.ResultCode),
		"result_desc", cb.ResultDesc,
	)
	return ackAccepted, nil
}
