package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arkapay/ppob-backend/internal/models"
)

// Store is the data access contract required by services. *repository.Store
// satisfies it; tests use in-memory fakes.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, error)
	UpdateUserRole(ctx context.Context, id uuid.UUID, role string) error
	AddUserBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error

	UpsertProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProductByCode(ctx context.Context, code string) (*models.Product, error)
	ListProducts(ctx context.Context, activeOnly bool) ([]models.Product, error)
	DeactivateMissingProducts(ctx context.Context, codes []string) (int64, error)

	CreateDeposit(ctx context.Context, d *models.Deposit) error
	GetDeposit(ctx context.Context, id uuid.UUID) (*models.Deposit, error)
	ListDeposits(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Deposit, error)
	GetPendingDeposit(ctx context.Context, userID uuid.UUID) (*models.Deposit, error)
	ListPendingDeposits(ctx context.Context) ([]models.Deposit, error)
	PendingRandomAmounts(ctx context.Context, amount decimal.Decimal) (map[int]struct{}, error)
	CreditDeposit(ctx context.Context, id uuid.UUID) (*models.Deposit, error)
	CancelDeposit(ctx context.Context, id, userID uuid.UUID) (*models.Deposit, error)

	GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	GetTransactionByRefID(ctx context.Context, refID int64) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error)
	ListUnresolvedTransactions(ctx context.Context, createdBefore time.Time, limit int) ([]models.Transaction, error)
	CreateTransactionDebit(ctx context.Context, trx *models.Transaction) error
	UpdateTransactionResult(ctx context.Context, id uuid.UUID, from []string, to string,
		providerTrxID, serialNumber, message *string) (*models.Transaction, error)
	FailTransactionRefund(ctx context.Context, id uuid.UUID, message *string) (*models.Transaction, error)
	MarkTransactionRefund(ctx context.Context, id uuid.UUID, message *string) (*models.Transaction, error)
}
