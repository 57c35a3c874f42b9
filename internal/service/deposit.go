// Package service holds the core deposit protocol: initiating an STK push
// against the gateway and reconciling its asynchronous result callback into
// an exactly-once wallet credit.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abanremit/mpesa-relay/internal/daraja"
	"github.com/abanremit/mpesa-relay/internal/domain"
	"github.com/abanremit/mpesa-relay/internal/logging"
	"github.com/abanremit/mpesa-relay/internal/phone"
)

type depositTransactionRepo interface {
	Create(ctx context.Context, txn *domain.Transaction) error
	SetGatewayIDs(ctx context.Context, id uuid.UUID, merchantRequestID, checkoutRequestID string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type gatewayClient interface {
	AccessToken(ctx context.Context) (string, error)
	STKPush(ctx context.Context, phone string, amount decimal.Decimal, accountRef string) (*daraja.STKPushResponse, error)
}

type DepositService struct {
	transactions depositTransactionRepo
	gateway      gatewayClient
}

func NewDepositService(transactions depositTransactionRepo, gateway gatewayClient) *DepositService {
	return &DepositService{transactions: transactions, gateway: gateway}
}

type DepositRequest struct {
	OwnerID string
	Phone   string
	Amount  decimal.Decimal
}

type DepositResult struct {
	CheckoutRequestID string
	MerchantRequestID string
	CustomerMessage   string
}

// Initiate triggers a push prompt for the deposit. The correlation record
// is inserted before the push call so a callback winning the race against
// our own response still finds its row. Acceptance here means the attempt
// was queued, not that the payment completed.
func (s *DepositService) Initiate(ctx context.Context, req DepositRequest) (*DepositResult, error) {
	log := logging.FromContext(ctx)

	if req.OwnerID == "" {
		return nil, fmt.Errorf("Initiate: %w: ownerId is required", domain.ErrValidation)
	}
	if req.Phone == "" {
		return nil, fmt.Errorf("Initiate: %w: phone is required", domain.ErrValidation)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("Initiate: %w", domain.ErrInvalidAmount)
	}

	msisdn := phone.Normalize(req.Phone)
	if !phone.Valid(msisdn) {
		return nil, fmt.Errorf("Initiate: %w: %q", domain.ErrInvalidPhone, req.Phone)
	}

	// Exchange credentials up front: an auth rejection must leave no record
	// behind and make no push attempt.
	if _, err := s.gateway.AccessToken(ctx); err != nil {
		return nil, fmt.Errorf("Initiate: %w", err)
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:      uuid.New(),
		OwnerID: req.OwnerID,
		// Provisional identifiers, overwritten once the gateway assigns its own.
		MerchantRequestID: "local-" + uuid.NewString(),
		CheckoutRequestID: "local-" + uuid.NewString(),
		PhoneNumber:       msisdn,
		Amount:            req.Amount,
		Status:            domain.TransactionStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.transactions.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("Initiate: create record: %w", err)
	}

	resp, err := s.gateway.STKPush(ctx, msisdn, req.Amount, req.OwnerID)
	if err != nil {
		// The push may still have landed upstream despite a local timeout; a
		// late callback for the removed record takes the benign not-found path.
		if delErr := s.transactions.Delete(ctx, txn.ID); delErr != nil && !errors.Is(delErr, domain.ErrNotFound) {
			log.Error("failed to clean up rejected transaction", "transaction_id", txn.ID, "error", delErr)
		}
		if errors.Is(err, domain.ErrGatewayRejected) || errors.Is(err, domain.ErrUpstreamAuth) {
			return nil, fmt.Errorf("Initiate: %w", err)
		}
		return nil, fmt.Errorf("Initiate: %w: %w", domain.ErrGatewayRejected, err)
	}

	if err := s.transactions.SetGatewayIDs(ctx, txn.ID, resp.MerchantRequestID, resp.CheckoutRequestID); err != nil {
		return nil, fmt.Errorf("Initiate: store gateway ids: %w", err)
	}

	log.Info("deposit initiated",
		"transaction_id", txn.ID,
		"owner_id", req.OwnerID,
		"checkout_request_id", resp.CheckoutRequestID,
		"amount", req.Amount,
	)

	return &DepositResult{
		CheckoutRequestID: resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		CustomerMessage:   resp.CustomerMessage,
	}, nil
}
