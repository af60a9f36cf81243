package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/mess-fee-api/internal/fees"
)

// PayablePreview shows what a student owes before a payment is recorded.
type PayablePreview struct {
	StudentID     string          `json:"student_id"`
	MonthlyFee    decimal.Decimal `json:"monthly_fee"`
	AbsentDays    int             `json:"absent_days"`
	DailyRate     decimal.Decimal `json:"daily_rate"`
	Payable       decimal.Decimal `json:"payable"`
	Period        time.Time       `json:"period"`
	FeeStatus     fees.FeeStatus  `json:"fee_status"`
	StatusMessage string          `json:"status_message"`
}
