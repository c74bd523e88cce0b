package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/arkapay/ppob-backend/internal/domain"
	"github.com/arkapay/ppob-backend/internal/gateway"
	"github.com/arkapay/ppob-backend/internal/models"
	"github.com/arkapay/ppob-backend/internal/observability"
	"github.com/arkapay/ppob-backend/internal/qris"
)

var (
	ErrInvalidAmount = errors.New("deposit amount must be a positive whole rupiah value")
)

// maxDepositAmount caps single transfers at what the gateway accepts.
var (
	minDepositAmount = decimal.NewFromInt(10)
	maxDepositAmount = decimal.NewFromInt(10000000)
)

// MutationFeed is the gateway mutation listing used to settle deposits.
type MutationFeed interface {
	Mutations(ctx context.Context) ([]gateway.Mutation, error)
}

// DepositService creates QRIS deposits and settles them against the payment
// gateway's mutation feed.
type DepositService struct {
	store    Store
	feed     MutationFeed
	qrisBase string
	rng      *rand.Rand
	now      func() time.Time
}

func NewDepositService(store Store, feed MutationFeed, qrisBase string, rng *rand.Rand) *DepositService {
	return &DepositService{
		store:    store,
		feed:     feed,
		qrisBase: qrisBase,
		rng:      rng,
		now:      time.Now,
	}
}

// Create opens a deposit for the user. The amount gets a small random offset
// so the resulting total is unique among open deposits of the same amount,
// and a dynamic QRIS payload carrying that total is generated. A user can
// hold only one open deposit at a time.
func (s *DepositService) Create(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.Deposit, error) {
	if !amount.IsInteger() || amount.LessThan(minDepositAmount) || amount.GreaterThan(maxDepositAmount) {
		return nil, ErrInvalidAmount
	}
	if _, err := s.store.GetPendingDeposit(ctx, userID); err == nil {
		return nil, models.ErrPendingDepositExists
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	used, err := s.store.PendingRandomAmounts(ctx, amount)
	if err != nil {
		return nil, err
	}
	offset := qris.RandomAmount(used, s.rng)
	total := amount.Add(decimal.NewFromInt(int64(offset)))

	payload, err := qris.Generate(s.qrisBase, total.IntPart())
	if err != nil {
		return nil, fmt.Errorf("generate QRIS payload: %w", err)
	}

	deposit := &models.Deposit{
		ID:           uuid.New(),
		UserID:       userID,
		Amount:       amount,
		RandomAmount: offset,
		TotalAmount:  total,
		QRISPayload:  payload,
		Status:       domain.DepositStatusPending,
	}
	if err := s.store.CreateDeposit(ctx, deposit); err != nil {
		return nil, err
	}

	zap.L().Info("deposit created",
		zap.String("deposit_id", deposit.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("total_amount", total.String()))
	return deposit, nil
}

func (s *DepositService) Get(ctx context.Context, id, userID uuid.UUID) (*models.Deposit, error) {
	d, err := s.store.GetDeposit(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, models.ErrNotFound
	}
	return d, nil
}

// Pending returns the user's open deposit, ErrNotFound when there is none.
func (s *DepositService) Pending(ctx context.Context, userID uuid.UUID) (*models.Deposit, error) {
	return s.store.GetPendingDeposit(ctx, userID)
}

func (s *DepositService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Deposit, error) {
	return s.store.ListDeposits(ctx, userID, limit, offset)
}

// Cancel closes the user's open deposit. No balance ever moved, so there is
// nothing to reverse.
func (s *DepositService) Cancel(ctx context.Context, id, userID uuid.UUID) (*models.Deposit, error) {
	return s.store.CancelDeposit(ctx, id, userID)
}

// Refresh re-checks the mutation feed for a payment settling the user's open
// deposit and credits it when found. Safe to call repeatedly.
func (s *DepositService) Refresh(ctx context.Context, id, userID uuid.UUID) (*models.Deposit, error) {
	deposit, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if deposit.Status != domain.DepositStatusPending {
		return deposit, nil
	}

	mutations, err := s.feed.Mutations(ctx)
	if err != nil {
		return nil, err
	}
	matches := MatchMutations(mutations, []models.Deposit{*deposit}, s.now())
	if len(matches) == 0 {
		return deposit, nil
	}
	return s.credit(ctx, matches[0])
}

// ReconcileAll settles every pending deposit that has a matching credit in
// the feed. Called by the reconcile worker and the gateway webhook.
func (s *DepositService) ReconcileAll(ctx context.Context) (int, error) {
	pending, err := s.store.ListPendingDeposits(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}
	mutations, err := s.feed.Mutations(ctx)
	if err != nil {
		return 0, err
	}

	credited := 0
	for _, m := range MatchMutations(mutations, pending, s.now()) {
		if _, err := s.credit(ctx, m); err != nil {
			zap.L().Error("failed to credit matched deposit",
				zap.String("deposit_id", m.Deposit.ID.String()), zap.Error(err))
			continue
		}
		credited++
	}
	return credited, nil
}

func (s *DepositService) credit(ctx context.Context, m Match) (*models.Deposit, error) {
	settled, err := s.store.CreditDeposit(ctx, m.Deposit.ID)
	if err != nil {
		// another observer of the same payment got there first
		if errors.Is(err, models.ErrDepositNotPending) {
			return s.store.GetDeposit(ctx, m.Deposit.ID)
		}
		return nil, err
	}
	observability.IncrementDepositMatch()
	zap.L().Info("deposit credited",
		zap.String("deposit_id", settled.ID.String()),
		zap.String("user_id", settled.UserID.String()),
		zap.String("credited", settled.TotalAmount.String()),
		zap.String("mutation_date", m.Mutation.Date))
	return settled, nil
}
