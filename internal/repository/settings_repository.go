package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mess-fee-api/internal/models"
)

// SettingsRepository persists the single-row mess configuration.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs a SettingsRepository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the stored settings row.
func (r *SettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	const query = `SELECT id, mess_name, default_monthly_fee, reminder_window_days, updated_at FROM settings ORDER BY updated_at DESC LIMIT 1`
	var settings models.Settings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Upsert writes the settings row, creating it when missing.
func (r *SettingsRepository) Upsert(ctx context.Context, settings *models.Settings) error {
	if settings.ID == "" {
		settings.ID = uuid.NewString()
	}
	settings.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO settings (id, mess_name, default_monthly_fee, reminder_window_days, updated_at)
        VALUES (:id, :mess_name, :default_monthly_fee, :reminder_window_days, :updated_at)
        ON CONFLICT (id) DO UPDATE SET mess_name = :mess_name, default_monthly_fee = :default_monthly_fee, reminder_window_days = :reminder_window_days, updated_at = :updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
