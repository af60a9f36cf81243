package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/mess-fee-api/internal/dto"
	"github.com/noah-isme/mess-fee-api/internal/fees"
	"github.com/noah-isme/mess-fee-api/internal/models"
	appErrors "github.com/noah-isme/mess-fee-api/pkg/errors"
)

type paymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error)
	SummaryForMonth(ctx context.Context, month time.Time) (*models.MonthlySummary, error)
}

type paymentStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	UpdateBilling(ctx context.Context, id string, dueDate time.Time, status fees.StudentStatus, absentDays int) error
}

// RecordPaymentRequest holds payload for settling a student's month.
type RecordPaymentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Method    string `json:"method" validate:"required,oneof=cash bank_transfer upi"`
	Note      string `json:"note"`
}

// PaymentService settles monthly fees. Recording a payment charges the
// prorated amount, advances the due date by one clamped calendar month and
// resets the absence counter.
type PaymentService struct {
	payments         paymentRepository
	students         paymentStudentRepository
	audit            auditRecorder
	cache            *CacheService
	settings         settingsProvider
	validator        *validator.Validate
	logger           *zap.Logger
	pendingWindow    int
	prorationDivisor int
	now              func() time.Time
}

// NewPaymentService constructs the payment service.
func NewPaymentService(payments paymentRepository, students paymentStudentRepository, audit auditRecorder, cache *CacheService, validate *validator.Validate, logger *zap.Logger, pendingWindow, prorationDivisor int) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pendingWindow <= 0 {
		pendingWindow = fees.DefaultPendingWindowDays
	}
	if prorationDivisor <= 0 {
		prorationDivisor = fees.DefaultProrationDivisor
	}
	return &PaymentService{
		payments:         payments,
		students:         students,
		audit:            audit,
		cache:            cache,
		validator:        validate,
		logger:           logger,
		pendingWindow:    pendingWindow,
		prorationDivisor: prorationDivisor,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Used by tests.
func (s *PaymentService) WithClock(now func() time.Time) *PaymentService {
	if now != nil {
		s.now = now
	}
	return s
}

// WithSettings attaches the stored mess configuration so that previews
// classify against the stored reminder window.
func (s *PaymentService) WithSettings(provider settingsProvider) *PaymentService {
	s.settings = provider
	return s
}

func (s *PaymentService) windowFor(ctx context.Context) int {
	if s.settings != nil {
		if settings, err := s.settings.Get(ctx); err == nil && settings.ReminderWindowDays > 0 {
			return settings.ReminderWindowDays
		}
	}
	return s.pendingWindow
}

// Preview computes what a student owes for the current cycle without
// recording anything. A non-nil absentDays overrides the stored counter,
// letting the admin preview an adjusted bill before updating the student.
func (s *PaymentService) Preview(ctx context.Context, studentID string, absentDays *int) (*dto.PayablePreview, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	absent := student.AbsentDays
	if absentDays != nil {
		absent = *absentDays
	}

	payable, err := fees.PayableWithDivisor(student.MonthlyFee, absent, s.prorationDivisor)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return &dto.PayablePreview{
		StudentID:     student.ID,
		MonthlyFee:    student.MonthlyFee,
		AbsentDays:    absent,
		DailyRate:     student.MonthlyFee.Div(decimal.NewFromInt(int64(s.prorationDivisor))).Round(2),
		Payable:       payable,
		Period:        student.DueDate,
		FeeStatus:     fees.Classify(student.DueDate, now, s.windowFor(ctx)),
		StatusMessage: fees.StatusMessage(student.DueDate, now),
	}, nil
}

// Record settles the student's current cycle: it persists the payment,
// advances the due date one clamped calendar month from the settled one,
// zeroes the absence counter and restores the active lifecycle status.
func (s *PaymentService) Record(ctx context.Context, req RecordPaymentRequest, actorID string) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	student, err := s.loadStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if student.Status == fees.StudentInactive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student is inactive")
	}

	amount, err := fees.PayableWithDivisor(student.MonthlyFee, student.AbsentDays, s.prorationDivisor)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		StudentID:  student.ID,
		Amount:     amount,
		MonthlyFee: student.MonthlyFee,
		AbsentDays: student.AbsentDays,
		Period:     student.DueDate,
		Method:     req.Method,
		Note:       req.Note,
		CreatedAt:  s.now(),
	}
	if actorID != "" {
		payment.RecordedBy = &actorID
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	nextDue := fees.DueDate(student.DueDate)
	if err := s.students.UpdateBilling(ctx, student.ID, nextDue, fees.StudentActive, 0); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance due date")
	}

	if s.audit != nil {
		values, _ := json.Marshal(payment)
		entry := &models.AuditLog{
			Action:     models.AuditActionPaymentRecord,
			Resource:   "payments",
			ResourceID: &payment.ID,
			NewValues:  values,
		}
		if actorID != "" {
			entry.UserID = &actorID
		}
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to record payment audit log", zap.Error(err))
		}
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, "dashboard:*"); err != nil {
			s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
		}
	}

	s.logger.Info("payment recorded",
		zap.String("student_id", student.ID),
		zap.String("amount", amount.String()),
		zap.Time("next_due", nextDue))

	return payment, nil
}

// List returns payments with student context and pagination metadata.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, *models.Pagination, error) {
	payments, total, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return payments, pagination, nil
}

// Summary aggregates collections for a calendar month.
func (s *PaymentService) Summary(ctx context.Context, month time.Time) (*models.MonthlySummary, error) {
	if month.IsZero() {
		month = s.now()
	}
	summary, err := s.payments.SummaryForMonth(ctx, month)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise payments")
	}
	return summary, nil
}

func (s *PaymentService) loadStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}
