package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mess-fee-api/internal/fees"
	"github.com/noah-isme/mess-fee-api/internal/models"
)

type mockDashboardRepo struct {
	counts  map[fees.StudentStatus]int
	overdue []models.Student
	before  time.Time
}

func (m *mockDashboardRepo) CountsByStatus(ctx context.Context) (map[fees.StudentStatus]int, error) {
	return m.counts, nil
}

func (m *mockDashboardRepo) TopOverdue(ctx context.Context, before time.Time, limit int) ([]models.Student, error) {
	m.before = before
	return m.overdue, nil
}

func TestDashboardServiceOverview(t *testing.T) {
	now := time.Date(2024, time.March, 10, 14, 30, 0, 0, time.UTC)
	repo := &mockDashboardRepo{
		counts: map[fees.StudentStatus]int{
			fees.StudentActive:   12,
			fees.StudentFeesDue:  3,
			fees.StudentInactive: 2,
		},
		overdue: []models.Student{
			{
				ID:         "s1",
				RollNo:     "R-001",
				FullName:   "Late Payer",
				MonthlyFee: decimal.NewFromInt(3000),
				DueDate:    time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC),
			},
		},
	}
	payments := &mockPaymentRepo{summary: &models.MonthlySummary{
		Month:          time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		TotalCollected: decimal.NewFromInt(5400),
		PaymentCount:   4,
	}}
	svc := NewDashboardService(repo, payments, nil, zap.NewNop(), time.Minute, true).
		WithClock(func() time.Time { return now })

	overview, cached, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)

	assert.Equal(t, 17, overview.TotalStudents)
	assert.Equal(t, 12, overview.ActiveStudents)
	assert.Equal(t, 3, overview.FeesDueStudents)
	assert.Equal(t, 2, overview.InactiveStudents)
	assert.Equal(t, "5400", overview.CollectedThisMonth.String())
	assert.Equal(t, 4, overview.PaymentsThisMonth)

	require.Len(t, overview.Overdue, 1)
	assert.Equal(t, 7, overview.Overdue[0].DaysOverdue)
	assert.Equal(t, "03 Mar 2024 - 7 days overdue", overview.Overdue[0].StatusMessage)

	// overdue cutoff is the start of today, not the raw clock reading
	assert.Equal(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), repo.before)
}

func TestDashboardServiceDisabled(t *testing.T) {
	svc := NewDashboardService(&mockDashboardRepo{}, &mockPaymentRepo{}, nil, zap.NewNop(), time.Minute, false)

	_, _, err := svc.Overview(context.Background())
	require.Error(t, err)
}
