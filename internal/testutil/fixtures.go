package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abanremit/mpesa-relay/internal/domain"
)

func SeedWallet(t *testing.T, db *sql.DB, ownerID string, balance decimal.Decimal) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO wallets (owner_id, balance) VALUES ($1, $2)`,
		ownerID, balance,
	)
	if err != nil {
		t.Fatalf("seed wallet %s: %v", ownerID, err)
	}
}

func SeedTransaction(t *testing.T, db *sql.DB, ownerID, checkoutRequestID string, amount decimal.Decimal, status domain.TransactionStatus) *domain.Transaction {
	t.Helper()

	txn := &domain.Transaction{
		ID:                uuid.New(),
		OwnerID:           ownerID,
		MerchantRequestID: "29115-34620561-1",
		CheckoutRequestID: checkoutRequestID,
		PhoneNumber:       "254712345678",
		Amount:            amount,
		Status:            status,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO mpesa_transactions (
			id, owner_id, merchant_request_id, checkout_request_id,
			phone_number, amount, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		txn.ID, txn.OwnerID, txn.MerchantRequestID, txn.CheckoutRequestID,
		txn.PhoneNumber, txn.Amount, txn.Status, txn.CreatedAt, txn.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed transaction %s: %v", checkoutRequestID, err)
	}
	return txn
}

func GetWalletBalance(t *testing.T, db *sql.DB, ownerID string) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(`SELECT balance FROM wallets WHERE owner_id = $1`, ownerID).Scan(&balance)
	if err != nil {
		t.Fatalf("get wallet balance %s: %v", ownerID, err)
	}
	return balance
}

func WalletExists(t *testing.T, db *sql.DB, ownerID string) bool {
	t.Helper()

	var exists bool
	err := db.QueryRow(`SELECT EXISTS(SELECT 1 FROM wallets WHERE owner_id = $1)`, ownerID).Scan(&exists)
	if err != nil {
		t.Fatalf("wallet exists %s: %v", ownerID, err)
	}
	return exists
}

func CountTransactions(t *testing.T, db *sql.DB, ownerID string) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM mpesa_transactions WHERE owner_id = $1`, ownerID).Scan(&count)
	if err != nil {
		t.Fatalf("count transactions for %s: %v", ownerID, err)
	}
	return count
}
