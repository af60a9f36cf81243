package service

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/mess-fee-api/internal/models"
	appErrors "github.com/noah-isme/mess-fee-api/pkg/errors"
)

type settingsRepository interface {
	Get(ctx context.Context) (*models.Settings, error)
	Upsert(ctx context.Context, settings *models.Settings) error
}

// UpdateSettingsRequest holds the editable mess configuration.
type UpdateSettingsRequest struct {
	MessName           string          `json:"mess_name" validate:"required"`
	DefaultMonthlyFee  decimal.Decimal `json:"default_monthly_fee"`
	ReminderWindowDays int             `json:"reminder_window_days" validate:"gte=1,lte=30"`
}

// SettingsService manages the single-row mess configuration.
type SettingsService struct {
	repo          settingsRepository
	audit         auditRecorder
	cache         *CacheService
	validator     *validator.Validate
	logger        *zap.Logger
	defaultWindow int
}

// NewSettingsService constructs the settings service.
func NewSettingsService(repo settingsRepository, audit auditRecorder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{repo: repo, audit: audit, cache: cache, validator: validate, logger: logger, defaultWindow: 7}
}

// WithDefaultWindow sets the reminder window reported before any settings
// row has been written, so the env-configured pending window stays in
// effect until the admin saves one.
func (s *SettingsService) WithDefaultWindow(days int) *SettingsService {
	if days > 0 {
		s.defaultWindow = days
	}
	return s
}

// Get returns the stored settings, falling back to defaults when the row
// has never been written.
func (s *SettingsService) Get(ctx context.Context) (*models.Settings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return &models.Settings{
				MessName:           "Mess",
				DefaultMonthlyFee:  decimal.Zero,
				ReminderWindowDays: s.defaultWindow,
			}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	return settings, nil
}

// Update writes the settings row and invalidates dependent caches.
func (s *SettingsService) Update(ctx context.Context, req UpdateSettingsRequest, actorID string) (*models.Settings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}
	if req.DefaultMonthlyFee.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "default monthly fee must not be negative")
	}

	current, err := s.repo.Get(ctx)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}

	settings := &models.Settings{
		MessName:           req.MessName,
		DefaultMonthlyFee:  req.DefaultMonthlyFee,
		ReminderWindowDays: req.ReminderWindowDays,
	}
	if current != nil {
		settings.ID = current.ID
	}

	if err := s.repo.Upsert(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save settings")
	}

	if s.audit != nil {
		values, _ := json.Marshal(settings)
		entry := &models.AuditLog{
			Action:     models.AuditActionSettingsUpdate,
			Resource:   "settings",
			ResourceID: &settings.ID,
			NewValues:  values,
		}
		if actorID != "" {
			entry.UserID = &actorID
		}
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to record settings audit log", zap.Error(err))
		}
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, "dashboard:*"); err != nil {
			s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
		}
	}

	return settings, nil
}
