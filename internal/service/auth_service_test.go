package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/mess-fee-api/internal/models"
	appErrors "github.com/noah-isme/mess-fee-api/pkg/errors"
)

type mockUserRepo struct {
	users         map[string]models.User
	refreshTokens map[string]models.RefreshToken
	auditLogs     []models.AuditLog
	revokedAll    []string
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	m.users[id] = u
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = append(m.revokedAll, userID)
	return nil
}

func (m *mockUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]models.RefreshToken)
	}
	m.refreshTokens[token.Token] = *token
	return nil
}

func (m *mockUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if rt, ok := m.refreshTokens[token]; ok {
		return &rt, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for k, rt := range m.refreshTokens {
		if rt.ID == id {
			rt.Revoked = true
			rt.RevokedAt = &revokedAt
			m.refreshTokens[k] = rt
		}
	}
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, *log)
	return nil
}

func newTestUserRepo(t *testing.T) *mockUserRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	return &mockUserRepo{
		users: map[string]models.User{
			"u1": {
				ID:           "u1",
				Email:        "admin@mess.local",
				PasswordHash: string(hash),
				FullName:     "Admin",
				Role:         models.RoleAdmin,
				Active:       true,
			},
		},
	}
}

func newTestAuthService(repo *mockUserRepo, limiter LoginLimiter) *AuthService {
	return NewAuthService(repo, limiter, validator.New(), zap.NewNop(), nil, AuthConfig{
		AccessTokenSecret:  "test_secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "mess-fee-api",
	})
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := newTestUserRepo(t)
	svc := newTestAuthService(repo, nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@mess.local",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newTestUserRepo(t)
	svc := newTestAuthService(repo, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@mess.local",
		Password: "wrong",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginRateLimited(t *testing.T) {
	repo := newTestUserRepo(t)
	limiter := NewWindowLimiter(2, time.Minute)
	svc := newTestAuthService(repo, limiter)

	for i := 0; i < 2; i++ {
		_, err := svc.Login(context.Background(), models.LoginRequest{
			Email:    "admin@mess.local",
			Password: "wrong",
		})
		require.Error(t, err)
	}

	// third attempt is rejected before credentials are checked
	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@mess.local",
		Password: "secret123",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrTooManyAttempts.Code, appErr.Code)
}

func TestAuthServiceLoginResetsLimiter(t *testing.T) {
	repo := newTestUserRepo(t)
	limiter := NewWindowLimiter(3, time.Minute)
	svc := newTestAuthService(repo, limiter)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@mess.local",
		Password: "wrong",
	})
	require.Error(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@mess.local",
		Password: "secret123",
	})
	require.NoError(t, err)

	// successful sign-in cleared the attempt history
	for i := 0; i < 3; i++ {
		allowed, _ := limiter.Allow("admin@mess.local", time.Now())
		assert.True(t, allowed)
	}
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	repo := newTestUserRepo(t)
	svc := newTestAuthService(repo, nil)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@mess.local",
		Password: "secret123",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// the consumed token is revoked and cannot be replayed
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := newTestUserRepo(t)
	svc := newTestAuthService(repo, nil)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "newsecret",
	})
	require.NoError(t, err)
	assert.Contains(t, repo.revokedAll, "u1")

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@mess.local",
		Password: "newsecret",
	})
	require.NoError(t, err)
}
