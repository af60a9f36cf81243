package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mess-fee-api/internal/models"
)

func TestPaymentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec("INSERT INTO payments").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	recordedBy := "admin"
	payment := &models.Payment{
		StudentID:  "id1",
		Amount:     decimal.NewFromInt(2000),
		MonthlyFee: decimal.NewFromInt(3000),
		AbsentDays: 10,
		Period:     time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
		Method:     "cash",
		RecordedBy: &recordedBy,
	}
	err := repo.Create(context.Background(), payment)
	require.NoError(t, err)
	assert.NotEmpty(t, payment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryListByMonth(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "amount", "monthly_fee", "absent_days", "period", "method", "note", "recorded_by", "created_at", "student_name", "roll_no"}).
		AddRow("p1", "id1", "2000", "3000", 10, time.Now(), "cash", "", "admin", time.Now(), "Student", "R-001")

	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	mock.ExpectQuery("SELECT p.id, p.student_id, .+ FROM payments p JOIN students s ON s.id = p.student_id WHERE 1=1 AND p.created_at >= \\$1 AND p.created_at < \\$2 ORDER BY p.created_at DESC").
		WithArgs(start, end).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM payments p JOIN students s").
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	month := time.Date(2024, time.March, 9, 12, 0, 0, 0, time.UTC)
	payments, total, err := repo.List(context.Background(), models.PaymentFilter{Month: &month})
	require.NoError(t, err)
	assert.Len(t, payments, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Student", payments[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositorySummaryForMonth(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count FROM payments WHERE created_at >= $1 AND created_at < $2")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"total", "count"}).AddRow("5400.50", 3))

	summary, err := repo.SummaryForMonth(context.Background(), time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "5400.5", summary.TotalCollected.String())
	assert.Equal(t, 3, summary.PaymentCount)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), summary.Month)
	assert.NoError(t, mock.ExpectationsWereMet())
}
