package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound             = errors.New("record not found")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrPendingDepositExists = errors.New("a pending deposit already exists")
	ErrDepositNotPending    = errors.New("deposit is not pending")
	ErrTransactionFinalized = errors.New("transaction already finalized")
	ErrProductInactive      = errors.New("product is not available")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
)

type User struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	Role         string          `json:"role"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type Product struct {
	ID          uuid.UUID       `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Deposit is a QRIS funding request. TotalAmount = Amount + RandomAmount;
// the random offset binds an incoming payment to exactly one deposit.
type Deposit struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Amount       decimal.Decimal `json:"amount"`
	RandomAmount int             `json:"random_amount"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	QRISPayload  string          `json:"qris_payload"`
	Status       string          `json:"status"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
	CancelledAt  *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Transaction is a purchase of a product fulfilled through the H2H provider.
// RefID is the serial, provider-facing numeric reference used in callbacks.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	RefID         int64           `json:"ref_id"`
	UserID        uuid.UUID       `json:"user_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	TargetID      string          `json:"target_id"`
	ServerID      *string         `json:"server_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	ProviderTrxID *string         `json:"provider_trx_id,omitempty"`
	SerialNumber  *string         `json:"serial_number,omitempty"`
	Message       *string         `json:"message,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
