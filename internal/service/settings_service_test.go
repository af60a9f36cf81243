package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mess-fee-api/internal/models"
	appErrors "github.com/noah-isme/mess-fee-api/pkg/errors"
)

type mockSettingsRepo struct {
	stored *models.Settings
}

func (m *mockSettingsRepo) Get(ctx context.Context) (*models.Settings, error) {
	if m.stored == nil {
		return nil, sql.ErrNoRows
	}
	return m.stored, nil
}

func (m *mockSettingsRepo) Upsert(ctx context.Context, settings *models.Settings) error {
	m.stored = settings
	return nil
}

func TestSettingsServiceGetDefaults(t *testing.T) {
	svc := NewSettingsService(&mockSettingsRepo{}, nil, nil, validator.New(), zap.NewNop())

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, settings.ReminderWindowDays)
	assert.True(t, settings.DefaultMonthlyFee.IsZero())

	// with no stored row the fallback window follows the configured one
	svc = NewSettingsService(&mockSettingsRepo{}, nil, nil, validator.New(), zap.NewNop()).
		WithDefaultWindow(5)
	settings, err = svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, settings.ReminderWindowDays)
}

func TestSettingsServiceUpdate(t *testing.T) {
	repo := &mockSettingsRepo{}
	audit := &mockAuditRecorder{}
	svc := NewSettingsService(repo, audit, nil, validator.New(), zap.NewNop())

	settings, err := svc.Update(context.Background(), UpdateSettingsRequest{
		MessName:           "North Mess",
		DefaultMonthlyFee:  decimal.NewFromInt(3200),
		ReminderWindowDays: 5,
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "North Mess", settings.MessName)
	assert.Equal(t, repo.stored, settings)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionSettingsUpdate, audit.entries[0].Action)
}

func TestSettingsServiceUpdateRejectsNegativeFee(t *testing.T) {
	svc := NewSettingsService(&mockSettingsRepo{}, nil, nil, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), UpdateSettingsRequest{
		MessName:           "North Mess",
		DefaultMonthlyFee:  decimal.NewFromInt(-1),
		ReminderWindowDays: 5,
	}, "admin")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidAmount.Code, appErr.Code)
}
