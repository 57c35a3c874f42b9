package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds an owner's ledger balance. It is only ever mutated by the
// credit applied when a transaction reaches completed.
type Wallet struct {
	OwnerID   string
	Balance   decimal.Decimal
	UpdatedAt time.Time
}
