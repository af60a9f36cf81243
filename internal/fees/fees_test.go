package fees

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/mess-fee-api/pkg/errors"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDueDateAddsOneCalendarMonth(t *testing.T) {
	assert.Equal(t, day(2024, time.February, 15), DueDate(day(2024, time.January, 15)))
	assert.Equal(t, day(2025, time.January, 15), DueDate(day(2024, time.December, 15)))
}

func TestDueDateClampsMonthEnd(t *testing.T) {
	// Jan 31 + 1 month clamps to the last valid day of February.
	assert.Equal(t, day(2024, time.February, 29), DueDate(day(2024, time.January, 31)))
	assert.Equal(t, day(2023, time.February, 28), DueDate(day(2023, time.January, 31)))
	assert.Equal(t, day(2024, time.April, 30), DueDate(day(2024, time.March, 31)))
	assert.Equal(t, day(2024, time.September, 30), DueDate(day(2024, time.August, 31)))
}

func TestDueDateSpansTheCalendarMonth(t *testing.T) {
	registration := day(2024, time.January, 15)
	due := DueDate(registration)
	assert.Equal(t, 31, DaysUntilDue(due, registration))

	registration = day(2024, time.April, 10)
	due = DueDate(registration)
	assert.Equal(t, 30, DaysUntilDue(due, registration))
}

func TestDaysUntilDue(t *testing.T) {
	due := day(2024, time.February, 15)
	assert.Equal(t, 5, DaysUntilDue(due, day(2024, time.February, 10)))
	assert.Equal(t, -5, DaysUntilDue(due, day(2024, time.February, 20)))
	assert.Equal(t, 0, DaysUntilDue(due, due))
}

func TestDaysUntilDueIgnoresTimeOfDay(t *testing.T) {
	due := time.Date(2024, time.February, 15, 23, 30, 0, 0, time.UTC)
	now := time.Date(2024, time.February, 14, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysUntilDue(due, now))
}

func TestClassify(t *testing.T) {
	due := day(2024, time.February, 15)
	cases := []struct {
		name string
		now  time.Time
		want FeeStatus
	}{
		{"overdue", day(2024, time.February, 20), StatusOverdue},
		{"one day overdue", day(2024, time.February, 16), StatusOverdue},
		{"due today", day(2024, time.February, 15), StatusDueToday},
		{"one day ahead is pending", day(2024, time.February, 14), StatusPending},
		{"seventh day ahead is pending", day(2024, time.February, 8), StatusPending},
		{"eighth day ahead is paid", day(2024, time.February, 7), StatusPaid},
		{"far future is paid", day(2024, time.January, 1), StatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(due, tc.now, DefaultPendingWindowDays))
		})
	}
}

func TestClassifyCustomWindow(t *testing.T) {
	due := day(2024, time.February, 15)
	assert.Equal(t, StatusPending, Classify(due, day(2024, time.February, 5), 10))
	assert.Equal(t, StatusPaid, Classify(due, day(2024, time.February, 5), 3))
}

func TestStatusUsesDefaultWindow(t *testing.T) {
	due := day(2024, time.February, 15)
	assert.Equal(t, StatusOverdue, Status(due, day(2024, time.February, 16)))
	assert.Equal(t, StatusDueToday, Status(due, day(2024, time.February, 15)))
	assert.Equal(t, StatusPending, Status(due, day(2024, time.February, 8)))
	assert.Equal(t, StatusPaid, Status(due, day(2024, time.February, 7)))
}

func TestStatusMessage(t *testing.T) {
	due := day(2024, time.February, 15)
	assert.Equal(t, "Due Today", StatusMessage(due, due))
	assert.Equal(t, "15 Feb 2024 - 1 day left", StatusMessage(due, day(2024, time.February, 14)))
	assert.Equal(t, "15 Feb 2024 - 5 days left", StatusMessage(due, day(2024, time.February, 10)))
	assert.Equal(t, "15 Feb 2024 - 1 day overdue", StatusMessage(due, day(2024, time.February, 16)))
	assert.Equal(t, "15 Feb 2024 - 5 days overdue", StatusMessage(due, day(2024, time.February, 20)))
}

func TestPayableProration(t *testing.T) {
	got, err := Payable(decimal.NewFromInt(3000), 10)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(2000)), got.String())
}

func TestPayableNoAbsence(t *testing.T) {
	fee := decimal.NewFromInt(2500)
	got, err := Payable(fee, 0)
	require.NoError(t, err)
	assert.True(t, got.Equal(fee), got.String())
}

func TestPayableFullMonthAbsent(t *testing.T) {
	got, err := Payable(decimal.NewFromInt(3000), 30)
	require.NoError(t, err)
	assert.True(t, got.IsZero(), got.String())
}

func TestPayableFloorsAtZero(t *testing.T) {
	got, err := Payable(decimal.NewFromInt(3000), 45)
	require.NoError(t, err)
	assert.True(t, got.IsZero(), got.String())
}

func TestPayableRoundsToCents(t *testing.T) {
	got, err := Payable(decimal.NewFromInt(1000), 10)
	require.NoError(t, err)
	assert.Equal(t, "666.67", got.StringFixed(2))
}

func TestPayableZeroFee(t *testing.T) {
	got, err := Payable(decimal.Zero, 12)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestPayableRejectsNegativeInputs(t *testing.T) {
	_, err := Payable(decimal.NewFromInt(-100), 0)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidAmount.Code, appErrors.FromError(err).Code)

	_, err = Payable(decimal.NewFromInt(100), -1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidAmount.Code, appErrors.FromError(err).Code)
}

func TestLifecycleMapping(t *testing.T) {
	assert.Equal(t, StudentInactive, Lifecycle(StatusPaid, false))
	assert.Equal(t, StudentInactive, Lifecycle(StatusOverdue, false))
	assert.Equal(t, StudentFeesDue, Lifecycle(StatusOverdue, true))
	assert.Equal(t, StudentFeesDue, Lifecycle(StatusDueToday, true))
	assert.Equal(t, StudentActive, Lifecycle(StatusPending, true))
	assert.Equal(t, StudentActive, Lifecycle(StatusPaid, true))
}
