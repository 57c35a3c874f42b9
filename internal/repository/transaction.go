package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abanremit/mpesa-relay/internal/domain"
)

const transactionColumns = `id, owner_id, merchant_request_id, checkout_request_id,
	phone_number, amount, status, result_code, result_desc, mpesa_receipt,
	completed_at, created_at, updated_at`

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO mpesa_transactions (
			id, owner_id, merchant_request_id, checkout_request_id,
			phone_number, amount, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		txn.ID, txn.OwnerID, txn.MerchantRequestID, txn.CheckoutRequestID,
		txn.PhoneNumber, txn.Amount, txn.Status, txn.CreatedAt, txn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByCheckoutID(ctx context.Context, checkoutRequestID string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM mpesa_transactions WHERE checkout_request_id = $1`,
		checkoutRequestID,
	)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByCheckoutID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByCheckoutID: %w", err)
	}
	return txn, nil
}

// SetGatewayIDs overwrites the provisional request identifiers with the
// ones the gateway assigned on push acceptance.
func (r *TransactionRepository) SetGatewayIDs(ctx context.Context, id uuid.UUID, merchantRequestID, checkoutRequestID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE mpesa_transactions
		SET merchant_request_id = $1, checkout_request_id = $2, updated_at = now()
		WHERE id = $3`,
		merchantRequestID, checkoutRequestID, id,
	)
	if err != nil {
		if IsDuplicateKey(err) {
			return fmt.Errorf("SetGatewayIDs: checkout id %s already recorded: %w", checkoutRequestID, err)
		}
		return fmt.Errorf("SetGatewayIDs: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SetGatewayIDs: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("SetGatewayIDs: %w", domain.ErrNotFound)
	}
	return nil
}

// Delete removes an orphaned pending record after a synchronous push
// rejection. Nothing will ever confirm it.
func (r *TransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM mpesa_transactions WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// Complete transitions pending -> completed inside tx. The status guard in
// the WHERE clause is the idempotence primitive: of two concurrent
// deliveries only one affects a row, the other gets ErrAlreadyTerminal.
func (r *TransactionRepository) Complete(ctx context.Context, tx *sql.Tx, id uuid.UUID, resultCode int, resultDesc string, receipt *string, completedAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE mpesa_transactions
		SET status = $1, result_code = $2, result_desc = $3, mpesa_receipt = $4,
			completed_at = $5, updated_at = now()
		WHERE id = $6 AND status = $7`,
		domain.TransactionStatusCompleted, resultCode, resultDesc, receipt,
		completedAt, id, domain.TransactionStatusPending,
	)
	if err != nil {
		return fmt.Errorf("Complete: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Complete: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Complete: %w", domain.ErrAlreadyTerminal)
	}
	return nil
}

// Fail transitions pending -> failed with the gateway's result code. Same
// status guard as Complete; no ledger mutation accompanies it.
func (r *TransactionRepository) Fail(ctx context.Context, id uuid.UUID, resultCode int, resultDesc string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE mpesa_transactions
		SET status = $1, result_code = $2, result_desc = $3, updated_at = now()
		WHERE id = $4 AND status = $5`,
		domain.TransactionStatusFailed, resultCode, resultDesc,
		id, domain.TransactionStatusPending,
	)
	if err != nil {
		return fmt.Errorf("Fail: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Fail: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Fail: %w", domain.ErrAlreadyTerminal)
	}
	return nil
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := s.Scan(
		&txn.ID, &txn.OwnerID, &txn.MerchantRequestID, &txn.CheckoutRequestID,
		&txn.PhoneNumber, &txn.Amount, &txn.Status, &txn.ResultCode, &txn.ResultDesc,
		&txn.MpesaReceipt, &txn.CompletedAt, &txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
