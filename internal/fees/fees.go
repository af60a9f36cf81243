// Package fees holds the fee computation core: due date arithmetic,
// payment status classification and monthly fee proration. Every function
// is pure; callers pass the current time explicitly.
package fees

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	appErrors "github.com/noah-isme/mess-fee-api/pkg/errors"
)

// FeeStatus is the display vocabulary for a student's fee situation.
// It is recomputed on every read and never persisted.
type FeeStatus string

const (
	StatusPaid     FeeStatus = "paid"
	StatusPending  FeeStatus = "pending"
	StatusDueToday FeeStatus = "due"
	StatusOverdue  FeeStatus = "overdue"
)

// StudentStatus is the persisted lifecycle vocabulary on student records.
// It is deliberately distinct from FeeStatus; Lifecycle maps between them.
type StudentStatus string

const (
	StudentActive   StudentStatus = "active"
	StudentFeesDue  StudentStatus = "fees_due"
	StudentInactive StudentStatus = "inactive"
)

// DefaultPendingWindowDays is the closed [1,7] day window ahead of the due
// date during which a fee is reported as pending.
const DefaultPendingWindowDays = 7

// DefaultProrationDivisor is the fixed daily-rate divisor. Proration always
// divides the monthly fee by 30 regardless of calendar month length.
const DefaultProrationDivisor = 30

// DueDate returns the fee due date for a registration date: one calendar
// month ahead, clamped to the last valid day of the target month
// (Jan 31 -> Feb 29 in a leap year, Feb 28 otherwise).
func DueDate(registration time.Time) time.Time {
	year, month, day := registration.Date()
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	lastDay := firstOfNext.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day, 0, 0, 0, 0, time.UTC)
}

// DaysUntilDue returns the signed whole-day count from now to the due date.
// Positive means days remaining, zero means due today, negative means overdue.
func DaysUntilDue(due, now time.Time) int {
	return int(startOfDay(due).Sub(startOfDay(now)).Hours() / 24)
}

// Status classifies a due date using the default pending window.
func Status(due, now time.Time) FeeStatus {
	return Classify(due, now, DefaultPendingWindowDays)
}

// Classify maps a due date to a FeeStatus given a pending window in days.
// The pending window is a closed interval: 1..windowDays days ahead.
func Classify(due, now time.Time, windowDays int) FeeStatus {
	if windowDays <= 0 {
		windowDays = DefaultPendingWindowDays
	}
	days := DaysUntilDue(due, now)
	switch {
	case days < 0:
		return StatusOverdue
	case days == 0:
		return StatusDueToday
	case days <= windowDays:
		return StatusPending
	default:
		return StatusPaid
	}
}

// StatusMessage renders a human-readable status line for the due date.
func StatusMessage(due, now time.Time) string {
	days := DaysUntilDue(due, now)
	if days == 0 {
		return "Due Today"
	}
	formatted := startOfDay(due).Format("02 Jan 2006")
	if days < 0 {
		return fmt.Sprintf("%s - %d %s overdue", formatted, -days, plural(-days))
	}
	return fmt.Sprintf("%s - %d %s left", formatted, days, plural(days))
}

// Payable computes the prorated amount owed for a month: the monthly fee
// reduced by a fixed daily rate (fee/30) per absent day, floored at zero.
// Negative inputs are rejected; a zero fee prorates trivially to zero.
func Payable(monthlyFee decimal.Decimal, absentDays int) (decimal.Decimal, error) {
	return PayableWithDivisor(monthlyFee, absentDays, DefaultProrationDivisor)
}

// PayableWithDivisor prorates using an explicit daily-rate divisor.
func PayableWithDivisor(monthlyFee decimal.Decimal, absentDays, divisor int) (decimal.Decimal, error) {
	if monthlyFee.IsNegative() {
		return decimal.Zero, appErrors.Clone(appErrors.ErrInvalidAmount, "monthly fee must not be negative")
	}
	if absentDays < 0 {
		return decimal.Zero, appErrors.Clone(appErrors.ErrInvalidAmount, "absent days must not be negative")
	}
	if divisor <= 0 {
		divisor = DefaultProrationDivisor
	}
	dailyRate := monthlyFee.Div(decimal.NewFromInt(int64(divisor)))
	payable := monthlyFee.Sub(dailyRate.Mul(decimal.NewFromInt(int64(absentDays))))
	if payable.IsNegative() {
		return decimal.Zero, nil
	}
	return payable.Round(2), nil
}

// Lifecycle maps a display FeeStatus onto the persisted StudentStatus.
// Deactivated students stay inactive regardless of their fee situation.
func Lifecycle(status FeeStatus, active bool) StudentStatus {
	if !active {
		return StudentInactive
	}
	switch status {
	case StatusDueToday, StatusOverdue:
		return StudentFeesDue
	default:
		return StudentActive
	}
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func plural(n int) string {
	if n == 1 {
		return "day"
	}
	return "days"
}
