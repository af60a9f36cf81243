package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mess-fee-api/internal/fees"
	"github.com/noah-isme/mess-fee-api/internal/models"
	appErrors "github.com/noah-isme/mess-fee-api/pkg/errors"
)

type mockPaymentRepo struct {
	created   []models.Payment
	listItems []models.PaymentDetail
	listTotal int
	summary   *models.MonthlySummary
	err       error
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	if m.err != nil {
		return m.err
	}
	if payment.ID == "" {
		payment.ID = "pay-1"
	}
	m.created = append(m.created, *payment)
	return nil
}

func (m *mockPaymentRepo) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.listItems, m.listTotal, nil
}

func (m *mockPaymentRepo) SummaryForMonth(ctx context.Context, month time.Time) (*models.MonthlySummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.summary != nil {
		return m.summary, nil
	}
	return &models.MonthlySummary{Month: month}, nil
}

type mockBillingRepo struct {
	students map[string]models.Student

	billedID     string
	billedDue    time.Time
	billedStatus fees.StudentStatus
	billedAbsent int
}

func (m *mockBillingRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockBillingRepo) UpdateBilling(ctx context.Context, id string, dueDate time.Time, status fees.StudentStatus, absentDays int) error {
	m.billedID = id
	m.billedDue = dueDate
	m.billedStatus = status
	m.billedAbsent = absentDays
	return nil
}

func newPaymentService(payments *mockPaymentRepo, students *mockBillingRepo, audit *mockAuditRecorder) *PaymentService {
	var recorder auditRecorder
	if audit != nil {
		recorder = audit
	}
	return NewPaymentService(payments, students, recorder, nil, validator.New(), zap.NewNop(), 0, 0)
}

func TestPaymentServicePreviewProrates(t *testing.T) {
	students := &mockBillingRepo{students: map[string]models.Student{
		"id1": {
			ID:         "id1",
			MonthlyFee: decimal.NewFromInt(3000),
			AbsentDays: 10,
			DueDate:    time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
			Status:     fees.StudentActive,
		},
	}}
	now := time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)
	svc := newPaymentService(&mockPaymentRepo{}, students, nil).WithClock(func() time.Time { return now })

	preview, err := svc.Preview(context.Background(), "id1", nil)
	require.NoError(t, err)
	assert.Equal(t, "2000", preview.Payable.String())
	assert.Equal(t, "100", preview.DailyRate.String())
	assert.Equal(t, fees.StatusPending, preview.FeeStatus)
	assert.Equal(t, "15 Mar 2024 - 5 days left", preview.StatusMessage)

	override := 3
	preview, err = svc.Preview(context.Background(), "id1", &override)
	require.NoError(t, err)
	assert.Equal(t, 3, preview.AbsentDays)
	assert.Equal(t, "2700", preview.Payable.String())

	// the stored reminder window narrows the pending classification
	svc.WithSettings(&mockSettingsProvider{settings: models.Settings{ReminderWindowDays: 3}})
	preview, err = svc.Preview(context.Background(), "id1", nil)
	require.NoError(t, err)
	assert.Equal(t, fees.StatusPaid, preview.FeeStatus)
}

func TestPaymentServiceRecordAdvancesDueDate(t *testing.T) {
	students := &mockBillingRepo{students: map[string]models.Student{
		"id1": {
			ID:         "id1",
			MonthlyFee: decimal.NewFromInt(3000),
			AbsentDays: 10,
			DueDate:    time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
			Status:     fees.StudentFeesDue,
		},
	}}
	payments := &mockPaymentRepo{}
	audit := &mockAuditRecorder{}
	svc := newPaymentService(payments, students, audit)

	payment, err := svc.Record(context.Background(), RecordPaymentRequest{
		StudentID: "id1",
		Method:    "cash",
	}, "admin")
	require.NoError(t, err)

	assert.Equal(t, "2000", payment.Amount.String())
	assert.Equal(t, time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC), payment.Period)
	require.NotNil(t, payment.RecordedBy)
	assert.Equal(t, "admin", *payment.RecordedBy)

	// Jan 31 advances to the clamped Feb 29 in a leap year.
	assert.Equal(t, "id1", students.billedID)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), students.billedDue)
	assert.Equal(t, fees.StudentActive, students.billedStatus)
	assert.Equal(t, 0, students.billedAbsent)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionPaymentRecord, audit.entries[0].Action)
}

func TestPaymentServiceRecordZeroFee(t *testing.T) {
	students := &mockBillingRepo{students: map[string]models.Student{
		"id1": {
			ID:         "id1",
			MonthlyFee: decimal.Zero,
			AbsentDays: 12,
			DueDate:    time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
			Status:     fees.StudentActive,
		},
	}}
	payments := &mockPaymentRepo{}
	svc := newPaymentService(payments, students, nil)

	payment, err := svc.Record(context.Background(), RecordPaymentRequest{StudentID: "id1", Method: "cash"}, "")
	require.NoError(t, err)
	assert.True(t, payment.Amount.IsZero())
	assert.Nil(t, payment.RecordedBy)
}

func TestPaymentServiceRecordInactiveStudent(t *testing.T) {
	students := &mockBillingRepo{students: map[string]models.Student{
		"id1": {ID: "id1", Status: fees.StudentInactive},
	}}
	svc := newPaymentService(&mockPaymentRepo{}, students, nil)

	_, err := svc.Record(context.Background(), RecordPaymentRequest{StudentID: "id1", Method: "cash"}, "")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestPaymentServiceRecordUnknownStudent(t *testing.T) {
	svc := newPaymentService(&mockPaymentRepo{}, &mockBillingRepo{}, nil)

	_, err := svc.Record(context.Background(), RecordPaymentRequest{StudentID: "missing", Method: "cash"}, "")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestPaymentServiceRecordRejectsBadMethod(t *testing.T) {
	svc := newPaymentService(&mockPaymentRepo{}, &mockBillingRepo{}, nil)

	_, err := svc.Record(context.Background(), RecordPaymentRequest{StudentID: "id1", Method: "cheque"}, "")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestPaymentServiceListPagination(t *testing.T) {
	payments := &mockPaymentRepo{listItems: []models.PaymentDetail{{}}, listTotal: 42}
	svc := newPaymentService(payments, &mockBillingRepo{}, nil)

	_, pagination, err := svc.List(context.Background(), models.PaymentFilter{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 10, pagination.PageSize)
	assert.Equal(t, 42, pagination.TotalCount)
}
