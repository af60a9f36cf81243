package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardOverview is the admin home screen payload.
type DashboardOverview struct {
	TotalStudents      int              `json:"total_students"`
	ActiveStudents     int              `json:"active_students"`
	FeesDueStudents    int              `json:"fees_due_students"`
	InactiveStudents   int              `json:"inactive_students"`
	CollectedThisMonth decimal.Decimal  `json:"collected_this_month"`
	PaymentsThisMonth  int              `json:"payments_this_month"`
	Overdue            []OverdueStudent `json:"overdue"`
	GeneratedAt        time.Time        `json:"generated_at"`
}

// OverdueStudent lists a student whose due date has passed.
type OverdueStudent struct {
	StudentID     string          `json:"student_id"`
	RollNo        string          `json:"roll_no"`
	FullName      string          `json:"full_name"`
	MonthlyFee    decimal.Decimal `json:"monthly_fee"`
	DueDate       time.Time       `json:"due_date"`
	DaysOverdue   int             `json:"days_overdue"`
	StatusMessage string          `json:"status_message"`
}
