package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment represents a settled monthly fee for a student. Period is the due
// date the payment settles; the student's next due date advances from it.
type Payment struct {
	ID         string          `db:"id" json:"id"`
	StudentID  string          `db:"student_id" json:"student_id"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	MonthlyFee decimal.Decimal `db:"monthly_fee" json:"monthly_fee"`
	AbsentDays int             `db:"absent_days" json:"absent_days"`
	Period     time.Time       `db:"period" json:"period"`
	Method     string          `db:"method" json:"method"`
	Note       string          `db:"note" json:"note"`
	RecordedBy *string         `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// PaymentDetail joins payment rows with student context for listings.
type PaymentDetail struct {
	Payment
	StudentName string `db:"student_name" json:"student_name"`
	RollNo      string `db:"roll_no" json:"roll_no"`
}

// PaymentFilter captures query parameters for listing payments.
type PaymentFilter struct {
	StudentID string
	Month     *time.Time
	Page      int
	PageSize  int
}

// MonthlySummary aggregates collections for a calendar month.
type MonthlySummary struct {
	Month          time.Time       `json:"month"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	PaymentCount   int             `json:"payment_count"`
}
