package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arkapay/ppob-backend/internal/domain"
	"github.com/arkapay/ppob-backend/internal/models"
	"github.com/arkapay/ppob-backend/internal/observability"
	"github.com/arkapay/ppob-backend/internal/provider"
)

// ProviderClient is the H2H provider surface the transaction flow needs.
type ProviderClient interface {
	CreateTransaction(ctx context.Context, productCode, destination string, refID int64) (provider.Outcome, string, error)
	CheckStatus(ctx context.Context, productCode, destination string, refID int64) (provider.Outcome, string, error)
}

// TransactionService runs the purchase flow: optimistic debit, provider
// submission, and status resolution from callbacks and polling.
type TransactionService struct {
	store    Store
	provider ProviderClient
}

func NewTransactionService(store Store, prov ProviderClient) *TransactionService {
	return &TransactionService{store: store, provider: prov}
}

// destination joins target and server id the way the provider expects.
func destination(targetID string, serverID *string) string {
	if serverID != nil && *serverID != "" {
		return fmt.Sprintf("%s%s", targetID, *serverID)
	}
	return targetID
}

// Create debits the buyer and submits the top-up to the provider. The debit
// happens first; an immediate provider rejection flips the transaction to
// failed and returns the money in the same call. If the provider cannot be
// reached the transaction stays pending and the refresh worker resolves it
// later.
func (s *TransactionService) Create(ctx context.Context, userID, productID uuid.UUID, targetID string, serverID *string) (*models.Transaction, error) {
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, models.ErrProductInactive
	}
	if targetID == "" {
		return nil, errors.New("target_id is required")
	}

	trx := &models.Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		TargetID:  targetID,
		ServerID:  serverID,
		Amount:    product.Price,
		Status:    domain.TrxStatusPending,
	}
	if err := s.store.CreateTransactionDebit(ctx, trx); err != nil {
		return nil, err
	}

	outcome, raw, err := s.provider.CreateTransaction(ctx, product.Code, destination(targetID, serverID), trx.RefID)
	if err != nil {
		observability.IncrementProviderRequest("create", "unreachable")
		zap.L().Warn("provider unreachable on create, leaving transaction pending",
			zap.String("trx_id", trx.ID.String()), zap.Error(err))
		return trx, nil
	}
	observability.IncrementProviderRequest("create", outcome.Status)

	switch outcome.Status {
	case provider.StatusFailed:
		failed, err := s.store.FailTransactionRefund(ctx, trx.ID, strPtr(outcome.Message))
		if err != nil {
			return nil, err
		}
		observability.IncrementTrxTransition(domain.TrxStatusFailed)
		return failed, nil
	case provider.StatusProcess:
		updated, err := s.store.UpdateTransactionResult(ctx, trx.ID,
			[]string{domain.TrxStatusPending}, domain.TrxStatusProcess,
			strPtr(outcome.ProviderTrxID), nil, strPtr(outcome.Message))
		if err != nil {
			return nil, err
		}
		observability.IncrementTrxTransition(domain.TrxStatusProcess)
		return updated, nil
	default:
		zap.L().Warn("unclassified provider create reply",
			zap.String("trx_id", trx.ID.String()), zap.String("raw", raw))
		return trx, nil
	}
}

func (s *TransactionService) Get(ctx context.Context, id, userID uuid.UUID) (*models.Transaction, error) {
	trx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if trx.UserID != userID {
		return nil, models.ErrNotFound
	}
	return trx, nil
}

func (s *TransactionService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	return s.store.ListTransactions(ctx, userID, limit, offset)
}

// Refresh polls the provider for the current status of an unresolved
// transaction and applies the result. Terminal transactions are returned
// unchanged without a provider call.
func (s *TransactionService) Refresh(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	trx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if domain.TrxIsTerminal(trx.Status) {
		return trx, nil
	}

	product, err := s.store.GetProduct(ctx, trx.ProductID)
	if err != nil {
		return nil, err
	}
	outcome, _, err := s.provider.CheckStatus(ctx, product.Code, destination(trx.TargetID, trx.ServerID), trx.RefID)
	if err != nil {
		observability.IncrementProviderRequest("status", "unreachable")
		return nil, err
	}
	observability.IncrementProviderRequest("status", outcome.Status)
	return s.apply(ctx, trx, outcome)
}

// ListUnresolved exposes the refresh worker's work queue.
func (s *TransactionService) ListUnresolved(ctx context.Context, olderThan time.Duration, limit int) ([]models.Transaction, error) {
	return s.store.ListUnresolvedTransactions(ctx, time.Now().Add(-olderThan), limit)
}

// HandleCallback applies a provider push message. The explicit reference id
// from the callback URL wins over the R# token embedded in the message, so a
// report with a drifted text format still resolves. Callbacks are delivered
// at least once; the status preconditions make re-delivery harmless.
func (s *TransactionService) HandleCallback(ctx context.Context, ref, message string) (*models.Transaction, error) {
	outcome := provider.ParseCallbackMessage(message)
	observability.IncrementProviderRequest("callback", outcome.Status)
	if ref == "" {
		ref = outcome.RefID
	}
	if ref == "" {
		return nil, fmt.Errorf("callback carries no reference: %q", message)
	}
	refID, err := parseRefID(ref)
	if err != nil {
		return nil, err
	}
	trx, err := s.store.GetTransactionByRefID(ctx, refID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, trx, outcome)
}

// apply moves a transaction according to a parsed provider outcome, honoring
// the state machine: terminal statuses stay put, failed refunds exactly once.
func (s *TransactionService) apply(ctx context.Context, trx *models.Transaction, outcome provider.Outcome) (*models.Transaction, error) {
	if domain.TrxIsTerminal(trx.Status) {
		return trx, nil
	}

	switch outcome.Status {
	case provider.StatusSuccess:
		updated, err := s.store.UpdateTransactionResult(ctx, trx.ID,
			[]string{domain.TrxStatusPending, domain.TrxStatusProcess}, domain.TrxStatusSuccess,
			strPtr(outcome.ProviderTrxID), strPtr(outcome.SerialNumber), strPtr(outcome.Message))
		if err != nil {
			if errors.Is(err, models.ErrTransactionFinalized) {
				return s.store.GetTransaction(ctx, trx.ID)
			}
			return nil, err
		}
		observability.IncrementTrxTransition(domain.TrxStatusSuccess)
		zap.L().Info("transaction succeeded",
			zap.String("trx_id", trx.ID.String()),
			zap.Stringp("serial_number", updated.SerialNumber))
		return updated, nil

	case provider.StatusFailed, provider.StatusNotFound:
		msg := outcome.Message
		if msg == "" {
			msg = "Transaksi tidak ditemukan di provider"
		}
		failed, err := s.store.FailTransactionRefund(ctx, trx.ID, strPtr(msg))
		if err != nil {
			if errors.Is(err, models.ErrTransactionFinalized) {
				return s.store.GetTransaction(ctx, trx.ID)
			}
			return nil, err
		}
		observability.IncrementTrxTransition(domain.TrxStatusFailed)
		zap.L().Info("transaction failed and refunded",
			zap.String("trx_id", trx.ID.String()), zap.String("message", msg))
		return failed, nil

	case provider.StatusProcess, provider.StatusPending:
		updated, err := s.store.UpdateTransactionResult(ctx, trx.ID,
			[]string{domain.TrxStatusPending}, domain.TrxStatusProcess,
			strPtr(outcome.ProviderTrxID), nil, strPtr(outcome.Message))
		if err != nil {
			// already in process or resolved meanwhile
			if errors.Is(err, models.ErrTransactionFinalized) {
				return s.store.GetTransaction(ctx, trx.ID)
			}
			return nil, err
		}
		return updated, nil

	default:
		zap.L().Warn("unclassified provider status, leaving transaction unchanged",
			zap.String("trx_id", trx.ID.String()), zap.String("raw", outcome.Message))
		return trx, nil
	}
}

// MarkRefund relabels a failed transaction. Admin only; the balance already
// came back when the transaction failed.
func (s *TransactionService) MarkRefund(ctx context.Context, id uuid.UUID, message *string) (*models.Transaction, error) {
	trx, err := s.store.MarkTransactionRefund(ctx, id, message)
	if err != nil {
		return nil, err
	}
	observability.IncrementTrxTransition(domain.TrxStatusRefund)
	return trx, nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseRefID(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad reference id %q: %w", s, err)
	}
	return n, nil
}
