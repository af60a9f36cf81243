package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/mess-fee-api/internal/fees"
)

// Student represents a boarder registered with the mess.
type Student struct {
	ID               string             `db:"id" json:"id"`
	RollNo           string             `db:"roll_no" json:"roll_no"`
	FullName         string             `db:"full_name" json:"full_name"`
	Phone            string             `db:"phone" json:"phone"`
	Room             string             `db:"room" json:"room"`
	MonthlyFee       decimal.Decimal    `db:"monthly_fee" json:"monthly_fee"`
	RegistrationDate time.Time          `db:"registration_date" json:"registration_date"`
	DueDate          time.Time          `db:"due_date" json:"due_date"`
	AbsentDays       int                `db:"absent_days" json:"absent_days"`
	Status           fees.StudentStatus `db:"status" json:"status"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Status    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentView decorates a student record with the computed fee situation
// for the day of the request.
type StudentView struct {
	Student
	FeeStatus     fees.FeeStatus `json:"fee_status"`
	StatusMessage string         `json:"status_message"`
	DaysUntilDue  int            `json:"days_until_due"`
}
