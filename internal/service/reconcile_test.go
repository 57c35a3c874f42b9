package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abanremit/mpesa-relay/internal/daraja"
	"github.com/abanremit/mpesa-relay/internal/domain"
	"github.com/abanremit/mpesa-relay/internal/repository"
	"github.com/abanremit/mpesa-relay/internal/testutil"
)

func successCallback(checkoutID, receipt string) *daraja.STKCallback {
	return &daraja.STKCallback{
		MerchantRequestID: "29115-34620561-1",
		CheckoutRequestID: checkoutID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		CallbackMetadata: &daraja.CallbackMetadata{
			Items: []daraja.MetadataItem{
				{Name: "Amount", Value: 500.0},
				{Name: "MpesaReceiptNumber", Value: receipt},
				{Name: "TransactionDate", Value: 20260220140509.0},
				{Name: "PhoneNumber", Value: 254712345678.0},
			},
		},
	}
}

func failureCallback(checkoutID string) *daraja.STKCallback {
	return &daraja.STKCallback{
		MerchantRequestID: "29115-34620561-1",
		CheckoutRequestID: checkoutID,
		ResultCode:        1032,
		ResultDesc:        "Request cancelled by user",
	}
}

func TestReconcile_Success_CreditsOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	transactionRepo := repository.NewTransactionRepository(db)
	svc := NewReconcileService(transactionRepo, repository.NewWalletRepository(db), db)

	amount := decimalFromString(t, "500")
	testutil.SeedTransaction(t, db, "u1", "ws_CO_1", amount, domain.TransactionStatusPending)

	ack, err := svc.Reconcile(ctx, successCallback("ws_CO_1", "R123"))
	require.NoError(t, err)
	assert.Equal(t, 0, ack.ResultCode)

	txn, err := transactionRepo.GetByCheckoutID(ctx, "ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
	require.NotNil(t, txn.MpesaReceipt)
	assert.Equal(t, "R123", *txn.MpesaReceipt)
	require.NotNil(t, txn.ResultCode)
	assert.Equal(t, 0, *txn.ResultCode)
	require.NotNil(t, txn.CompletedAt)

	assert.True(t, testutil.GetWalletBalance(t, db, "u1").Equal(amount))
}

func TestReconcile_DuplicateDeliveries_SingleCredit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	svc := NewReconcileService(repository.NewTransactionRepository(db), repository.NewWalletRepository(db), db)

	amount := decimalFromString(t, "500")
	testutil.SeedWallet(t, db, "u1", decimalFromString(t, "100"))
	testutil.SeedTransaction(t, db, "u1", "ws_CO_1", amount, domain.TransactionStatusPending)

	for range 3 {
		ack, err := svc.Reconcile(ctx, successCallback("ws_CO_1", "R123"))
		require.NoError(t, err)
		assert.Equal(t, 0, ack.ResultCode)
	}

	assert.True(t, testutil.GetWalletBalance(t, db, "u1").Equal(decimalFromString(t, "600")))
}

func TestReconcile_ConcurrentDeliveries_SingleCredit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	svc := NewReconcileService(repository.NewTransactionRepository(db), repository.NewWalletRepository(db), db)

	amount := decimalFromString(t, "500")
	testutil.SeedTransaction(t, db, "u1", "ws_CO_1", amount, domain.TransactionStatusPending)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ack, err := svc.Reconcile(ctx, successCallback("ws_CO_1", "R123"))
			assert.NoError(t, err)
			assert.Equal(t, 0, ack.ResultCode)
		}()
	}
	wg.Wait()

	assert.True(t, testutil.GetWalletBalance(t, db, "u1").Equal(amount))
}

func TestReconcile_Failure_NoCredit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	transactionRepo := repository.NewTransactionRepository(db)
	svc := NewReconcileService(transactionRepo, repository.NewWalletRepository(db), db)

	testutil.SeedTransaction(t, db, "u1", "ws_CO_1", decimalFromString(t, "500"), domain.TransactionStatusPending)

	for range 2 {
		ack, err := svc.Reconcile(ctx, failureCallback("ws_CO_1"))
		require.NoError(t, err)
		assert.Equal(t, 0, ack.ResultCode)
	}

	txn, err := transactionRepo.GetByCheckoutID(ctx, "ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusFailed, txn.Status)
	require.NotNil(t, txn.ResultCode)
	assert.Equal(t, 1032, *txn.ResultCode)
	require.NotNil(t, txn.ResultDesc)
	assert.Equal(t, "Request cancelled by user", *txn.ResultDesc)

	assert.False(t, testutil.WalletExists(t, db, "u1"))
}

func TestReconcile_FailureAfterSuccess_NoOp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	transactionRepo := repository.NewTransactionRepository(db)
	svc := NewReconcileService(transactionRepo, repository.NewWalletRepository(db), db)

	amount := decimalFromString(t, "500")
	testutil.SeedTransaction(t, db, "u1", "ws_CO_1", amount, domain.TransactionStatusPending)

	_, err := svc.Reconcile(ctx, successCallback("ws_CO_1", "R123"))
	require.NoError(t, err)

	ack, err := svc.Reconcile(ctx, failureCallback("ws_CO_1"))
	require.NoError(t, err)
	assert.Equal(t, 0, ack.ResultCode)

	txn, err := transactionRepo.GetByCheckoutID(ctx, "ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
	assert.True(t, testutil.GetWalletBalance(t, db, "u1").Equal(amount))
}

func TestReconcile_UnknownCheckoutID_BenignAck(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	svc := NewReconcileService(repository.NewTransactionRepository(db), repository.NewWalletRepository(db), db)

	ack, err := svc.Reconcile(ctx, successCallback("ws_CO_never_seen", "R999"))
	require.NoError(t, err)
	assert.Equal(t, 0, ack.ResultCode)

	assert.False(t, testutil.WalletExists(t, db, "u1"))
	assert.Equal(t, 0, testutil.CountTransactions(t, db, "u1"))
}

func TestReconcile_SuccessWithoutMetadata_StillCompletes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	transactionRepo := repository.NewTransactionRepository(db)
	svc := NewReconcileService(transactionRepo, repository.NewWalletRepository(db), db)

	amount := decimalFromString(t, "250")
	testutil.SeedTransaction(t, db, "u2", "ws_CO_2", amount, domain.TransactionStatusPending)

	cb := successCallback("ws_CO_2", "R1")
	cb.CallbackMetadata = nil

	ack, err := svc.Reconcile(ctx, cb)
	require.NoError(t, err)
	assert.Equal(t, 0, ack.ResultCode)

	txn, err := transactionRepo.GetByCheckoutID(ctx, "ws_CO_2")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
	assert.Nil(t, txn.MpesaReceipt)
	require.NotNil(t, txn.CompletedAt)

	assert.True(t, testutil.GetWalletBalance(t, db, "u2").Equal(amount))
}
