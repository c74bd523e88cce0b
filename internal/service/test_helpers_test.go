package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arkapay/ppob-backend/internal/domain"
	"github.com/arkapay/ppob-backend/internal/gateway"
	"github.com/arkapay/ppob-backend/internal/models"
	"github.com/arkapay/ppob-backend/internal/provider"
)

// fakeStore is an in-memory Store with the same atomicity semantics as the
// postgres implementation: precondition-guarded status flips coupled to
// balance mutations.
type fakeStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*models.User
	products map[uuid.UUID]*models.Product
	deposits map[uuid.UUID]*models.Deposit
	trxs     map[uuid.UUID]*models.Transaction
	nextRef  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[uuid.UUID]*models.User{},
		products: map[uuid.UUID]*models.Product{},
		deposits: map[uuid.UUID]*models.Deposit{},
		trxs:     map[uuid.UUID]*models.Transaction{},
	}
}

func (f *fakeStore) CreateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return models.ErrEmailTaken
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeStore) ListUsers(_ context.Context, limit, offset int) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeStore) UpdateUserRole(_ context.Context, id uuid.UUID, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.Role = role
	return nil
}

func (f *fakeStore) AddUserBalance(_ context.Context, id uuid.UUID, delta decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.ErrNotFound
	}
	next := u.Balance.Add(delta)
	if next.IsNegative() {
		return models.ErrInsufficientBalance
	}
	u.Balance = next
	return nil
}

func (f *fakeStore) UpsertProduct(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.products {
		if existing.Code == p.Code {
			existing.Name = p.Name
			existing.Category = p.Category
			existing.Price = p.Price
			existing.Active = p.Active
			p.ID = existing.ID
			return nil
		}
	}
	cp := *p
	f.products[p.ID] = &cp
	return nil
}

func (f *fakeStore) GetProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) GetProductByCode(_ context.Context, code string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeStore) ListProducts(_ context.Context, activeOnly bool) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Product
	for _, p := range f.products {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) DeactivateMissingProducts(_ context.Context, codes []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keep := map[string]bool{}
	for _, c := range codes {
		keep[c] = true
	}
	var n int64
	for _, p := range f.products {
		if p.Active && !keep[p.Code] {
			p.Active = false
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CreateDeposit(_ context.Context, d *models.Deposit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.deposits {
		if existing.UserID == d.UserID && existing.Status == domain.DepositStatusPending {
			return models.ErrPendingDepositExists
		}
	}
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	f.deposits[d.ID] = &cp
	return nil
}

func (f *fakeStore) GetDeposit(_ context.Context, id uuid.UUID) (*models.Deposit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deposits[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeStore) ListDeposits(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.Deposit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Deposit
	for _, d := range f.deposits {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeStore) GetPendingDeposit(_ context.Context, userID uuid.UUID) (*models.Deposit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.deposits {
		if d.UserID == userID && d.Status == domain.DepositStatusPending {
			cp := *d
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeStore) ListPendingDeposits(_ context.Context) ([]models.Deposit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Deposit
	for _, d := range f.deposits {
		if d.Status == domain.DepositStatusPending {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) PendingRandomAmounts(_ context.Context, amount decimal.Decimal) (map[int]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	used := map[int]struct{}{}
	for _, d := range f.deposits {
		if d.Status == domain.DepositStatusPending && d.Amount.Equal(amount) {
			used[d.RandomAmount] = struct{}{}
		}
	}
	return used, nil
}

func (f *fakeStore) CreditDeposit(_ context.Context, id uuid.UUID) (*models.Deposit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deposits[id]
	if !ok || d.Status != domain.DepositStatusPending {
		return nil, models.ErrDepositNotPending
	}
	u, ok := f.users[d.UserID]
	if !ok {
		return nil, models.ErrNotFound
	}
	now := time.Now()
	d.Status = domain.DepositStatusSuccess
	d.PaidAt = &now
	u.Balance = u.Balance.Add(d.TotalAmount)
	cp := *d
	return &cp, nil
}

func (f *fakeStore) CancelDeposit(_ context.Context, id, userID uuid.UUID) (*models.Deposit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deposits[id]
	if !ok || d.UserID != userID || d.Status != domain.DepositStatusPending {
		return nil, models.ErrDepositNotPending
	}
	now := time.Now()
	d.Status = domain.DepositStatusCancelled
	d.CancelledAt = &now
	cp := *d
	return &cp, nil
}

func (f *fakeStore) GetTransaction(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trxs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) GetTransactionByRefID(_ context.Context, refID int64) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.trxs {
		if t.RefID == refID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeStore) ListTransactions(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, t := range f.trxs {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeStore) ListUnresolvedTransactions(_ context.Context, createdBefore time.Time, limit int) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, t := range f.trxs {
		if (t.Status == domain.TrxStatusPending || t.Status == domain.TrxStatusProcess) && t.CreatedAt.Before(createdBefore) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) CreateTransactionDebit(_ context.Context, trx *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[trx.UserID]
	if !ok {
		return models.ErrNotFound
	}
	if u.Balance.LessThan(trx.Amount) {
		return models.ErrInsufficientBalance
	}
	f.nextRef++
	trx.RefID = f.nextRef
	trx.CreatedAt = time.Now()
	trx.UpdatedAt = trx.CreatedAt
	u.Balance = u.Balance.Sub(trx.Amount)
	cp := *trx
	f.trxs[trx.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateTransactionResult(_ context.Context, id uuid.UUID, from []string, to string,
	providerTrxID, serialNumber, message *string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trxs[id]
	if !ok {
		return nil, models.ErrTransactionFinalized
	}
	allowed := false
	for _, s := range from {
		if t.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, models.ErrTransactionFinalized
	}
	t.Status = to
	if providerTrxID != nil {
		t.ProviderTrxID = providerTrxID
	}
	if serialNumber != nil {
		t.SerialNumber = serialNumber
	}
	if message != nil {
		t.Message = message
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) FailTransactionRefund(_ context.Context, id uuid.UUID, message *string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trxs[id]
	if !ok || (t.Status != domain.TrxStatusPending && t.Status != domain.TrxStatusProcess) {
		return nil, models.ErrTransactionFinalized
	}
	u, ok := f.users[t.UserID]
	if !ok {
		return nil, models.ErrNotFound
	}
	t.Status = domain.TrxStatusFailed
	if message != nil {
		t.Message = message
	}
	u.Balance = u.Balance.Add(t.Amount)
	cp := *t
	return &cp, nil
}

func (f *fakeStore) MarkTransactionRefund(_ context.Context, id uuid.UUID, message *string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trxs[id]
	if !ok || t.Status != domain.TrxStatusFailed {
		return nil, models.ErrInvalidTransition
	}
	t.Status = domain.TrxStatusRefund
	if message != nil {
		t.Message = message
	}
	cp := *t
	return &cp, nil
}

// seedUser adds a user with the given balance.
func (f *fakeStore) seedUser(balance int64) *models.User {
	u := &models.User{
		ID:      uuid.New(),
		Name:    "Test Reseller",
		Email:   uuid.NewString() + "@example.com",
		Role:    domain.RoleUser,
		Balance: decimal.NewFromInt(balance),
	}
	f.mu.Lock()
	f.users[u.ID] = u
	f.mu.Unlock()
	return u
}

func (f *fakeStore) seedProduct(code string, price int64, active bool) *models.Product {
	p := &models.Product{
		ID:       uuid.New(),
		Code:     code,
		Name:     code,
		Category: "GAMES",
		Price:    decimal.NewFromInt(price),
		Active:   active,
	}
	f.mu.Lock()
	f.products[p.ID] = p
	f.mu.Unlock()
	return p
}

func (f *fakeStore) balance(id uuid.UUID) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id].Balance
}

// fakeFeed serves a fixed mutation list.
type fakeFeed struct {
	mutations []gateway.Mutation
	err       error
}

func (f *fakeFeed) Mutations(context.Context) ([]gateway.Mutation, error) {
	return f.mutations, f.err
}

// fakeProvider replays scripted outcomes.
type fakeProvider struct {
	createOutcome provider.Outcome
	createErr     error
	statusOutcome provider.Outcome
	statusErr     error
	createCalls   int
	statusCalls   int
}

func (f *fakeProvider) CreateTransaction(context.Context, string, string, int64) (provider.Outcome, string, error) {
	f.createCalls++
	return f.createOutcome, f.createOutcome.Message, f.createErr
}

func (f *fakeProvider) CheckStatus(context.Context, string, string, int64) (provider.Outcome, string, error) {
	f.statusCalls++
	return f.statusOutcome, f.statusOutcome.Message, f.statusErr
}
