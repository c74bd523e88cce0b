package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkapay/ppob-backend/internal/domain"
	"github.com/arkapay/ppob-backend/internal/models"
	"github.com/arkapay/ppob-backend/internal/provider"
)

func TestTransactionCreateAccepted(t *testing.T) {
	store := newFakeStore()
	user := store.seedUser(100000)
	product := store.seedProduct("ML86", 20000, true)
	prov := &fakeProvider{createOutcome: provider.Outcome{
		Status:        provider.StatusProcess,
		ProviderTrxID: "210286229",
		Message:       "Transaksi akan diproses",
	}}
	svc := NewTransactionService(store, prov)

	trx, err := svc.Create(context.Background(), user.ID, product.ID, "81234567", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.TrxStatusProcess, trx.Status)
	assert.Equal(t, int64(1), trx.RefID)
	require.NotNil(t, trx.ProviderTrxID)
	assert.Equal(t, "210286229", *trx.ProviderTrxID)
	assert.True(t, store.balance(user.ID).Equal(decimal.NewFromInt(80000)))
}

func TestTransactionCreateRejectedRefundsImmediately(t *testing.T) {
	store := newFakeStore()
	user := store.seedUser(100000)
	product := store.seedProduct("ML86", 20000, true)
	prov := &fakeProvider{createOutcome: provider.Outcome{
		Status:  provider.StatusFailed,
		Message: "Pin Salah",
	}}
	svc := NewTransactionService(store, prov)

	trx, err := svc.Create(context.Background(), user.ID, product.ID, "81234567", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.TrxStatusFailed, trx.Status)
	require.NotNil(t, trx.Message)
	assert.Equal(t, "Pin Salah", *trx.Message)
	// debit and refund cancel out
	assert.True(t, store.balance(user.ID).Equal(decimal.NewFromInt(100000)))
}

func TestTransactionCreateInsufficientBalance(t *testing.T) {
	store := newFakeStore()
	user := store.seedUser(5000)
	product := store.seedProduct("ML86", 20000, true)
	svc := NewTransactionService(store, &fakeProvider{})

	_, err := svc.Create(context.Background(), user.ID, product.ID, "81234567", nil)
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)
	assert.True(t, store.balance(user.ID).Equal(decimal.NewFromInt(5000)))
}

func TestTransactionCreateInactiveProduct(t *testing.T) {
	store := newFakeStore()
	user := store.seedUser(100000)
	product := store.seedProduct("ML86", 20000, false)
	svc := NewTransactionService(store, &fakeProvider{})

	_, err := svc.Create(context.Background(), user.ID, product.ID, "81234567", nil)
	assert.ErrorIs(t, err, models.ErrProductInactive)
}

func TestTransactionCreateProviderUnreachable(t *testing.T) {
	store := newFakeStore()
	user := store.seedUser(100000)
	product := store.seedProduct("ML86", 20000, true)
	prov := &fakeProvider{createErr: provider.ErrUnreachable}
	svc := NewTransactionService(store, prov)

	trx, err := svc.Create(context.Background(), user.ID, product.ID, "81234567", nil)
	require.NoError(t, err)

	// debit stands, resolution deferred to the refresh worker
	assert.Equal(t, domain.TrxStatusPending, trx.Status)
	assert.True(t, store.balance(user.ID).Equal(decimal.NewFromInt(80000)))
}

func TestTransactionRefreshSuccessIsTerminal(t *testing.T) {
	store := newFakeStore()
	user := store.seedUser(100000)
	product := store.seedProduct("ML86", 20000, true)
	prov := &fakeProvider{
		createOutcome: provider.Outcome{Status: provider.StatusProcess, ProviderTrxID: "42"},
		statusOutcome: provider.Outcome{
			Status:       provider.StatusSuccess,
			SerialNumber: "R230512.1908.2000FE",
		},
	}
	svc := NewTransactionService(store, prov)

	trx, err := svc.Create(context.Background(), user.ID, product.ID, "81234567", nil)
	require.NoError(t, err)

	resolved, err := svc.Refresh(context.Background(), trx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TrxStatusSuccess, resolved.Status)
	require.NotNil(t, resolved.SerialNumber)
	assert.Equal(t, "R230512.1908.2000FE", *resolved.SerialNumber)

	// terminal status short-circuits, no further provider calls
	calls := prov.statusCalls
	again, err := svc.Refresh(context.Background(), trx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TrxStatusSuccess, again.Status)
	assert.Equal(t, calls, prov.statusCalls)
}

func TestTransactionRefreshFailureRefundsOnce(t *testing.T) {
	store := newFakeStore()
	user := store.seedUser(100000)
	product := store.seedProduct("ML86", 20000, true)
	prov := &fakeProvider{
		createOutcome: provider.Outcome{Status: provider.StatusProcess},
		statusOutcome: provider.Outcome{Status: provider.StatusFailed, Message: "Tujuan salah"},
	}
	svc := NewTransactionService(store, prov)

	trx, err := svc.Create(context.Background(), user.ID, product.ID, "81234567", nil)
	require.NoError(t, err)
	require.True(t, store.balance(user.ID).Equal(decimal.NewFromInt(80000)))

	failed, err := svc.Refresh(context.Background(), trx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TrxStatusFailed, failed.Status)
	assert.True(t, store.balance(user.ID).Equal(decimal.NewFromInt(100000)))

	// a second failure report must not refund again
	again, err := svc.Refresh(context.Background(), trx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TrxStatusFailed, again.Status)
	assert.True(t, store.balance(user.ID).Equal(decimal.NewFromInt(100000)))
}

func TestTransactionCallbackSuccess(t *testing.T) {
	store := newFakeStore()
	user := store.seedUser(100000)
	product := store.seedProduct("ML86", 20000, true)
	prov := &fakeProvider{createOutcome: provider.Outcome{Status: provider.StatusProcess}}
	svc := NewTransactionService(store, prov)

	trx, err := svc.Create(context.Background(), user.ID, product.ID, "81234567", nil)
	require.NoError(t, err)

	message := fmt.Sprintf(
		"T#210286229 R#%d Three 1.000 T1.089660522887 SUKSES. SN/Ref: R210630.2203.210045. Saldo 212.529 - 1.029 = 211.500",
		trx.RefID)
	resolved, err := svc.HandleCallback(context.Background(), "", message)
	require.NoError(t, err)

	assert.Equal(t, domain.TrxStatusSuccess, resolved.Status)
	require.NotNil(t, resolved.SerialNumber)
	assert.Equal(t, "R210630.2203.210045", *resolved.SerialNumber)
}

func TestTransactionCallbackRedelivery(t *testing.T) {
	store := newFakeStore()
	user := store.seedUser(100000)
	product := store.seedProduct("ML86", 20000, true)
	prov := &fakeProvider{createOutcome: provider.Outcome{Status: provider.StatusProcess}}
	svc := NewTransactionService(store, prov)

	trx, err := svc.Create(context.Background(), user.ID, product.ID, "81234567", nil)
	require.NoError(t, err)

	message := fmt.Sprintf("T#210286229 R#%d Three 1.000 T1.089660522887 GAGAL. Tujuan salah.", trx.RefID)
	for i := 0; i < 3; i++ {
		resolved, err := svc.HandleCallback(context.Background(), "", message)
		require.NoError(t, err)
		assert.Equal(t, domain.TrxStatusFailed, resolved.Status)
	}
	// refund applied exactly once across redeliveries
	assert.True(t, store.balance(user.ID).Equal(decimal.NewFromInt(100000)))
}

func TestTransactionCallbackUnknownRef(t *testing.T) {
	store := newFakeStore()
	svc := NewTransactionService(store, &fakeProvider{})

	_, err := svc.HandleCallback(context.Background(), "", "T#1 R#9999 SUKSES. SN/Ref: X1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.HandleCallback(context.Background(), "", "pesan tanpa referensi")
	assert.Error(t, err)
}

func TestTransactionCallbackExplicitRef(t *testing.T) {
	store := newFakeStore()
	user := store.seedUser(100000)
	product := store.seedProduct("ML86", 20000, true)
	prov := &fakeProvider{createOutcome: provider.Outcome{Status: provider.StatusProcess}}
	svc := NewTransactionService(store, prov)

	trx, err := svc.Create(context.Background(), user.ID, product.ID, "81234567", nil)
	require.NoError(t, err)

	// the message format drifted and carries no R# token; the explicit
	// reference still resolves the transaction
	ref := fmt.Sprintf("%d", trx.RefID)
	resolved, err := svc.HandleCallback(context.Background(), ref, "Trx ML86.81234567 SUKSES. SN/Ref: X900Z")
	require.NoError(t, err)
	assert.Equal(t, domain.TrxStatusSuccess, resolved.Status)

	// an explicit reference wins over the embedded token
	trx2, err := svc.Create(context.Background(), user.ID, product.ID, "81234568", nil)
	require.NoError(t, err)
	resolved, err = svc.HandleCallback(context.Background(), fmt.Sprintf("%d", trx2.RefID),
		"T#1 R#9999 GAGAL. Tujuan salah.")
	require.NoError(t, err)
	assert.Equal(t, domain.TrxStatusFailed, resolved.Status)
}

func TestTransactionMarkRefund(t *testing.T) {
	store := newFakeStore()
	user := store.seedUser(100000)
	product := store.seedProduct("ML86", 20000, true)
	prov := &fakeProvider{createOutcome: provider.Outcome{Status: provider.StatusFailed, Message: "Pin Salah"}}
	svc := NewTransactionService(store, prov)

	trx, err := svc.Create(context.Background(), user.ID, product.ID, "81234567", nil)
	require.NoError(t, err)
	require.Equal(t, domain.TrxStatusFailed, trx.Status)

	refunded, err := svc.MarkRefund(context.Background(), trx.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TrxStatusRefund, refunded.Status)
	// relabel only, money already returned on failure
	assert.True(t, store.balance(user.ID).Equal(decimal.NewFromInt(100000)))

	_, err = svc.MarkRefund(context.Background(), trx.ID, nil)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}
