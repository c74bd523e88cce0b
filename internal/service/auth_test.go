package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkapay/ppob-backend/internal/domain"
	"github.com/arkapay/ppob-backend/internal/models"
)

const testSecret = "auth-test-secret-0123456789abcdef"

func newAuthService(store *fakeStore) *AuthService {
	return NewAuthService(store, testSecret, "ppob-test", "ppob-api-test", time.Hour)
}

func TestAuthRegisterAndLogin(t *testing.T) {
	store := newFakeStore()
	svc := newAuthService(store)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Budi Santoso", "  Budi@Example.COM ", "rahasia-banget")
	require.NoError(t, err)
	assert.Equal(t, "budi@example.com", user.Email)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.NotEqual(t, "rahasia-banget", user.PasswordHash)

	token, loggedIn, err := svc.Login(ctx, "budi@example.com", "rahasia-banget")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	}, jwt.WithIssuer("ppob-test"), jwt.WithAudience("ppob-api-test"))
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, user.ID.String(), claims.Subject)
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	store := newFakeStore()
	svc := newAuthService(store)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Budi", "budi@example.com", "rahasia-banget")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Budi Kedua", "budi@example.com", "password-lain")
	assert.ErrorIs(t, err, models.ErrEmailTaken)
}

func TestAuthRegisterWeakPassword(t *testing.T) {
	svc := newAuthService(newFakeStore())

	_, err := svc.Register(context.Background(), "Budi", "budi@example.com", "short")
	require.Error(t, err)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	store := newFakeStore()
	svc := newAuthService(store)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Budi", "budi@example.com", "rahasia-banget")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "budi@example.com", "salah-semua")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "tidak-ada@example.com", "rahasia-banget")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestAuthAdjustBalance(t *testing.T) {
	store := newFakeStore()
	svc := newAuthService(store)
	ctx := context.Background()
	user := store.seedUser(50000)

	updated, err := svc.AdjustBalance(ctx, user.ID, decimal.NewFromInt(25000))
	require.NoError(t, err)
	assert.True(t, updated.Balance.Equal(decimal.NewFromInt(75000)))

	updated, err = svc.AdjustBalance(ctx, user.ID, decimal.NewFromInt(-75000))
	require.NoError(t, err)
	assert.True(t, updated.Balance.IsZero())

	_, err = svc.AdjustBalance(ctx, user.ID, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)

	_, err = svc.AdjustBalance(ctx, user.ID, decimal.Zero)
	require.Error(t, err)
}

func TestAuthUpdateRole(t *testing.T) {
	store := newFakeStore()
	svc := newAuthService(store)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Budi", "budi@example.com", "rahasia-banget")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateRole(ctx, user.ID, domain.RoleAdmin))
	updated, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, updated.Role)

	assert.Error(t, svc.UpdateRole(ctx, user.ID, "superuser"))
	assert.ErrorIs(t, svc.UpdateRole(ctx, uuid.New(), domain.RoleUser), models.ErrNotFound)
}
