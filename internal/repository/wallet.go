package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/abanremit/mpesa-relay/internal/domain"
)

type WalletRepository struct {
	db *sql.DB
}

func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) Get(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	var w domain.Wallet
	err := r.db.QueryRowContext(ctx,
		`SELECT owner_id, balance, updated_at FROM wallets WHERE owner_id = $1`,
		ownerID,
	).Scan(&w.OwnerID, &w.Balance, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &w, nil
}

// Credit adds amount to the owner's balance inside tx, creating the wallet
// row on first deposit. Runs in the same transaction as the status CAS so
// the credit commits exactly when the pending -> completed transition does.
func (r *WalletRepository) Credit(ctx context.Context, tx *sql.Tx, ownerID string, amount decimal.Decimal) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO wallets (owner_id, balance, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (owner_id)
		DO UPDATE SET balance = wallets.balance + EXCLUDED.balance, updated_at = now()`,
		ownerID, amount,
	)
	if err != nil {
		return fmt.Errorf("Credit: %w", err)
	}
	return nil
}
