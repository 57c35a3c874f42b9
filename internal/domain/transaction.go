package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

// Transaction is the correlation record for one STK push attempt. It is
// created before the push call so a callback always has a row to attach to,
// and transitions exactly once from pending to a terminal status.
type Transaction struct {
	ID                uuid.UUID
	OwnerID           string
	MerchantRequestID string
	CheckoutRequestID string
	PhoneNumber       string
	Amount            decimal.Decimal
	Status            TransactionStatus
	ResultCode        *int
	ResultDesc        *string
	MpesaReceipt      *string
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
