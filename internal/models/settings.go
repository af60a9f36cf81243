package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings holds the single-row mess configuration editable by the admin.
type Settings struct {
	ID                 string          `db:"id" json:"id"`
	MessName           string          `db:"mess_name" json:"mess_name"`
	DefaultMonthlyFee  decimal.Decimal `db:"default_monthly_fee" json:"default_monthly_fee"`
	ReminderWindowDays int             `db:"reminder_window_days" json:"reminder_window_days"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}
