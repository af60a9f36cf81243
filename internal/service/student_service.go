package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/mess-fee-api/internal/fees"
	"github.com/noah-isme/mess-fee-api/internal/models"
	appErrors "github.com/noah-isme/mess-fee-api/pkg/errors"
)

// dateLayout is the wire format for date-only fields.
const dateLayout = "2006-01-02"

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	ListByStatuses(ctx context.Context, statuses ...fees.StudentStatus) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByRollNo(ctx context.Context, rollNo string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	UpdateStatus(ctx context.Context, id string, status fees.StudentStatus) error
	Deactivate(ctx context.Context, id string) error
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// settingsProvider surfaces the stored mess configuration to services whose
// output depends on it: the reminder window drives status classification and
// the default monthly fee backs student creation.
type settingsProvider interface {
	Get(ctx context.Context) (*models.Settings, error)
}

// CreateStudentRequest holds payload for registering a student.
type CreateStudentRequest struct {
	RollNo           string          `json:"roll_no" validate:"required"`
	FullName         string          `json:"full_name" validate:"required"`
	Phone            string          `json:"phone"`
	Room             string          `json:"room"`
	MonthlyFee       decimal.Decimal `json:"monthly_fee"`
	RegistrationDate string          `json:"registration_date" validate:"required"`
}

// UpdateStudentRequest holds payload for updating a student.
type UpdateStudentRequest struct {
	RollNo     string          `json:"roll_no" validate:"required"`
	FullName   string          `json:"full_name" validate:"required"`
	Phone      string          `json:"phone"`
	Room       string          `json:"room"`
	MonthlyFee decimal.Decimal `json:"monthly_fee"`
	AbsentDays int             `json:"absent_days" validate:"gte=0"`
}

// StudentService handles student registration, listing and lifecycle.
// Fee statuses are computed on every read; only the lifecycle status is
// persisted.
type StudentService struct {
	repo          studentRepository
	audit         auditRecorder
	settings      settingsProvider
	validator     *validator.Validate
	logger        *zap.Logger
	pendingWindow int
	now           func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, pendingWindow int) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pendingWindow <= 0 {
		pendingWindow = fees.DefaultPendingWindowDays
	}
	return &StudentService{
		repo:          repo,
		audit:         audit,
		validator:     validate,
		logger:        logger,
		pendingWindow: pendingWindow,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Used by tests.
func (s *StudentService) WithClock(now func() time.Time) *StudentService {
	if now != nil {
		s.now = now
	}
	return s
}

// WithSettings attaches the stored mess configuration. When set, the
// reminder window there overrides the configured pending window and the
// default monthly fee fills in student creation.
func (s *StudentService) WithSettings(provider settingsProvider) *StudentService {
	s.settings = provider
	return s
}

// windowFor resolves the pending window for one request: the stored
// reminder window wins when a settings row exists, the env-configured
// window otherwise.
func (s *StudentService) windowFor(ctx context.Context) int {
	if s.settings != nil {
		if settings, err := s.settings.Get(ctx); err == nil && settings.ReminderWindowDays > 0 {
			return settings.ReminderWindowDays
		}
	}
	return s.pendingWindow
}

// List returns student views and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentView, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	now := s.now()
	window := s.windowFor(ctx)
	views := make([]models.StudentView, 0, len(students))
	for _, student := range students {
		views = append(views, toView(student, now, window))
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return views, pagination, nil
}

// Get returns a single student view.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentView, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	view := toView(*student, s.now(), s.windowFor(ctx))
	return &view, nil
}

// Create registers a new student. The first due date is one calendar month
// after the registration date, clamped to the end of the target month.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest, actorID string) (*models.StudentView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	registration, err := time.Parse(dateLayout, req.RegistrationDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidDate.Code, appErrors.ErrInvalidDate.Status, "registration date must be YYYY-MM-DD")
	}
	if req.MonthlyFee.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "monthly fee must not be negative")
	}
	fee := req.MonthlyFee
	if fee.IsZero() && s.settings != nil {
		if settings, err := s.settings.Get(ctx); err == nil && settings.DefaultMonthlyFee.IsPositive() {
			fee = settings.DefaultMonthlyFee
		}
	}
	exists, err := s.repo.ExistsByRollNo(ctx, req.RollNo, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate roll number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "roll number already used")
	}

	student := &models.Student{
		RollNo:           req.RollNo,
		FullName:         req.FullName,
		Phone:            req.Phone,
		Room:             req.Room,
		MonthlyFee:       fee,
		RegistrationDate: registration,
		DueDate:          fees.DueDate(registration),
		AbsentDays:       0,
		Status:           fees.StudentActive,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	s.recordAudit(ctx, actorID, models.AuditActionStudentCreate, student.ID, student)

	view := toView(*student, s.now(), s.windowFor(ctx))
	return &view, nil
}

// Update modifies an existing student record. The registration date and the
// due date are not editable through this path.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest, actorID string) (*models.StudentView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if req.MonthlyFee.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "monthly fee must not be negative")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	exists, err := s.repo.ExistsByRollNo(ctx, req.RollNo, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate roll number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "roll number already used")
	}

	student.RollNo = req.RollNo
	student.FullName = req.FullName
	student.Phone = req.Phone
	student.Room = req.Room
	student.MonthlyFee = req.MonthlyFee
	student.AbsentDays = req.AbsentDays

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}

	s.recordAudit(ctx, actorID, models.AuditActionStudentUpdate, student.ID, student)

	view := toView(*student, s.now(), s.windowFor(ctx))
	return &view, nil
}

// Deactivate marks a student inactive. Inactive students keep their record
// but drop out of fee tracking.
func (s *StudentService) Deactivate(ctx context.Context, id string, actorID string) error {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.Deactivate(ctx, student.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}

	s.recordAudit(ctx, actorID, models.AuditActionStudentDelete, student.ID, nil)

	return nil
}

// RefreshStatuses recomputes the persisted lifecycle status for every
// tracked student and writes back the ones that changed. It returns the
// number of updated records.
func (s *StudentService) RefreshStatuses(ctx context.Context) (int, error) {
	students, err := s.repo.ListByStatuses(ctx, fees.StudentActive, fees.StudentFeesDue)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tracked students")
	}

	now := s.now()
	window := s.windowFor(ctx)
	updated := 0
	for _, student := range students {
		next := fees.Lifecycle(fees.Classify(student.DueDate, now, window), true)
		if next == student.Status {
			continue
		}
		if err := s.repo.UpdateStatus(ctx, student.ID, next); err != nil {
			s.logger.Warn("failed to refresh student status",
				zap.String("student_id", student.ID),
				zap.Error(err))
			continue
		}
		updated++
	}

	s.logger.Info("student statuses refreshed",
		zap.Int("scanned", len(students)),
		zap.Int("updated", updated))
	return updated, nil
}

func toView(student models.Student, now time.Time, window int) models.StudentView {
	return models.StudentView{
		Student:       student,
		FeeStatus:     fees.Classify(student.DueDate, now, window),
		StatusMessage: fees.StatusMessage(student.DueDate, now),
		DaysUntilDue:  fees.DaysUntilDue(student.DueDate, now),
	}
}

func (s *StudentService) recordAudit(ctx context.Context, actorID, action, resourceID string, payload interface{}) {
	if s.audit == nil {
		return
	}
	var values []byte
	if payload != nil {
		values, _ = json.Marshal(payload)
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "students",
		ResourceID: &resourceID,
		NewValues:  values,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
