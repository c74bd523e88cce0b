package service

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkapay/ppob-backend/internal/domain"
	"github.com/arkapay/ppob-backend/internal/gateway"
	"github.com/arkapay/ppob-backend/internal/models"
	"github.com/arkapay/ppob-backend/internal/provider"
)

// testQrisBase is a minimal static payload; Generate recomputes the CRC.
const testQrisBase = "0002010102115303360" + "6304" + "0000"

func newDepositService(store Store, feed MutationFeed) *DepositService {
	return NewDepositService(store, feed, testQrisBase, rand.New(rand.NewSource(1)))
}

func TestDepositCreate(t *testing.T) {
	store := newFakeStore()
	user := store.seedUser(0)
	svc := newDepositService(store, &fakeFeed{})

	d, err := svc.Create(context.Background(), user.ID, decimal.NewFromInt(50000))
	require.NoError(t, err)

	assert.Equal(t, domain.DepositStatusPending, d.Status)
	assert.GreaterOrEqual(t, d.RandomAmount, 1)
	assert.LessOrEqual(t, d.RandomAmount, 100)
	assert.True(t, d.TotalAmount.Equal(d.Amount.Add(decimal.NewFromInt(int64(d.RandomAmount)))))
	assert.Contains(t, d.QRISPayload, "010212")
	assert.Contains(t, d.QRISPayload, fmt.Sprintf("5405%d", d.TotalAmount.IntPart()))
}

func TestDepositCreateRejectsSecondPending(t *testing.T) {
	store := newFakeStore()
	user := store.seedUser(0)
	svc := newDepositService(store, &fakeFeed{})

	_, err := svc.Create(context.Background(), user.ID, decimal.NewFromInt(50000))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), user.ID, decimal.NewFromInt(25000))
	assert.ErrorIs(t, err, models.ErrPendingDepositExists)
}

func TestDepositCreateRejectsBadAmount(t *testing.T) {
	store := newFakeStore()
	user := store.seedUser(0)
	svc := newDepositService(store, &fakeFeed{})

	_, err := svc.Create(context.Background(), user.ID, decimal.NewFromFloat(50000.50))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Create(context.Background(), user.ID, decimal.NewFromInt(9))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Create(context.Background(), user.ID, decimal.NewFromInt(10000001))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	// the documented minimum is accepted
	_, err = svc.Create(context.Background(), user.ID, decimal.NewFromInt(10))
	assert.NoError(t, err)
}

func TestDepositCancel(t *testing.T) {
	store := newFakeStore()
	user := store.seedUser(0)
	svc := newDepositService(store, &fakeFeed{})

	d, err := svc.Create(context.Background(), user.ID, decimal.NewFromInt(50000))
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), d.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DepositStatusCancelled, cancelled.Status)
	assert.True(t, store.balance(user.ID).IsZero())

	_, err = svc.Cancel(context.Background(), d.ID, user.ID)
	assert.ErrorIs(t, err, models.ErrDepositNotPending)
}

func TestDepositRefreshCreditsOnce(t *testing.T) {
	store := newFakeStore()
	user := store.seedUser(0)
	feed := &fakeFeed{}
	svc := newDepositService(store, feed)

	d, err := svc.Create(context.Background(), user.ID, decimal.NewFromInt(50000))
	require.NoError(t, err)

	feed.mutations = []gateway.Mutation{{
		Date:   time.Now().Add(-time.Hour).Format(mutationTimeLayout),
		Amount: provider.FlexScalar(d.TotalAmount.String()),
		Type:   gateway.TypeCredit,
	}}

	settled, err := svc.Refresh(context.Background(), d.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DepositStatusSuccess, settled.Status)
	assert.NotNil(t, settled.PaidAt)
	assert.True(t, store.balance(user.ID).Equal(d.TotalAmount))

	// re-observing the same payment must not credit again
	again, err := svc.Refresh(context.Background(), d.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DepositStatusSuccess, again.Status)
	assert.True(t, store.balance(user.ID).Equal(d.TotalAmount))
}

func TestDepositReconcileAll(t *testing.T) {
	store := newFakeStore()
	alice := store.seedUser(0)
	bob := store.seedUser(0)
	feed := &fakeFeed{}
	svc := newDepositService(store, feed)

	da, err := svc.Create(context.Background(), alice.ID, decimal.NewFromInt(50000))
	require.NoError(t, err)
	db, err := svc.Create(context.Background(), bob.ID, decimal.NewFromInt(50000))
	require.NoError(t, err)
	require.NotEqual(t, da.TotalAmount, db.TotalAmount, "random offsets must differ")

	now := time.Now()
	feed.mutations = []gateway.Mutation{
		{Date: now.Add(-time.Hour).Format(mutationTimeLayout), Amount: provider.FlexScalar(da.TotalAmount.String()), Type: gateway.TypeCredit},
		{Date: now.Add(-time.Minute).Format(mutationTimeLayout), Amount: provider.FlexScalar(db.TotalAmount.String()), Type: gateway.TypeCredit},
		{Date: now.Format(mutationTimeLayout), Amount: "99999", Type: gateway.TypeCredit},
	}

	credited, err := svc.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, credited)
	assert.True(t, store.balance(alice.ID).Equal(da.TotalAmount))
	assert.True(t, store.balance(bob.ID).Equal(db.TotalAmount))

	// second pass over the same feed is a no-op
	credited, err = svc.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, credited)
}

func TestDepositRefreshFeedDown(t *testing.T) {
	store := newFakeStore()
	user := store.seedUser(0)
	feed := &fakeFeed{err: gateway.ErrFeedUnavailable}
	svc := newDepositService(store, feed)

	d, err := svc.Create(context.Background(), user.ID, decimal.NewFromInt(50000))
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), d.ID, user.ID)
	assert.ErrorIs(t, err, gateway.ErrFeedUnavailable)

	// deposit untouched
	got, err := svc.Get(context.Background(), d.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DepositStatusPending, got.Status)
}
