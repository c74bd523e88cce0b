package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/arkapay/ppob-backend/internal/domain"
	"github.com/arkapay/ppob-backend/internal/models"
)

// AuthService registers resellers and issues JWT access tokens.
type AuthService struct {
	store    Store
	secret   []byte
	issuer   string
	audience string
	tokenTTL time.Duration
}

func NewAuthService(store Store, secret, issuer, audience string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		store:    store,
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		tokenTTL: tokenTTL,
	}
}

type tokenClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return nil, errors.New("name and email are required")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	zap.L().Info("user registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

// Login verifies credentials and returns a signed token plus the user.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", nil, models.ErrInvalidCredentials
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, models.ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		UserID: user.ID.String(),
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *AuthService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.store.ListUsers(ctx, limit, offset)
}

// AdjustBalance applies a signed manual correction to a user's balance and
// returns the updated user. The repository rejects adjustments that would
// take the balance negative.
func (s *AuthService) AdjustBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (*models.User, error) {
	if delta.IsZero() {
		return nil, errors.New("delta must be non-zero")
	}
	if err := s.store.AddUserBalance(ctx, id, delta); err != nil {
		return nil, err
	}
	zap.L().Info("balance adjusted",
		zap.String("user_id", id.String()),
		zap.String("delta", delta.String()))
	return s.store.GetUser(ctx, id)
}

func (s *AuthService) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return errors.New("unknown role")
	}
	return s.store.UpdateUserRole(ctx, id, role)
}
