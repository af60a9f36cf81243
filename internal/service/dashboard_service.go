package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mess-fee-api/internal/dto"
	"github.com/noah-isme/mess-fee-api/internal/fees"
	"github.com/noah-isme/mess-fee-api/internal/models"
	appErrors "github.com/noah-isme/mess-fee-api/pkg/errors"
)

const dashboardCacheKey = "dashboard:overview"

type dashboardRepository interface {
	CountsByStatus(ctx context.Context) (map[fees.StudentStatus]int, error)
	TopOverdue(ctx context.Context, before time.Time, limit int) ([]models.Student, error)
}

type dashboardPaymentRepository interface {
	SummaryForMonth(ctx context.Context, month time.Time) (*models.MonthlySummary, error)
}

// DashboardService assembles the admin overview: student counts per
// lifecycle status, this month's collections and the oldest overdue fees.
type DashboardService struct {
	repo     dashboardRepository
	payments dashboardPaymentRepository
	cache    *CacheService
	logger   *zap.Logger
	cacheTTL time.Duration
	enabled  bool
	now      func() time.Time
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(repo dashboardRepository, payments dashboardPaymentRepository, cache *CacheService, logger *zap.Logger, cacheTTL time.Duration, enabled bool) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{
		repo:     repo,
		payments: payments,
		cache:    cache,
		logger:   logger,
		cacheTTL: cacheTTL,
		enabled:  enabled,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Used by tests.
func (s *DashboardService) WithClock(now func() time.Time) *DashboardService {
	if now != nil {
		s.now = now
	}
	return s
}

// Enabled reports whether the dashboard endpoints should be exposed.
func (s *DashboardService) Enabled() bool {
	return s != nil && s.enabled
}

// Overview returns the dashboard payload. The second return value reports
// whether the payload was served from cache.
func (s *DashboardService) Overview(ctx context.Context) (*dto.DashboardOverview, bool, error) {
	if !s.Enabled() {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "dashboard is disabled")
	}

	if s.cache != nil {
		var cached dto.DashboardOverview
		if hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	now := s.now()

	counts, err := s.repo.CountsByStatus(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}

	summary, err := s.payments.SummaryForMonth(ctx, now)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise collections")
	}

	overdue, err := s.repo.TopOverdue(ctx, startOfToday(now), 10)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list overdue students")
	}

	overview := &dto.DashboardOverview{
		TotalStudents:      counts[fees.StudentActive] + counts[fees.StudentFeesDue] + counts[fees.StudentInactive],
		ActiveStudents:     counts[fees.StudentActive],
		FeesDueStudents:    counts[fees.StudentFeesDue],
		InactiveStudents:   counts[fees.StudentInactive],
		CollectedThisMonth: summary.TotalCollected,
		PaymentsThisMonth:  summary.PaymentCount,
		Overdue:            make([]dto.OverdueStudent, 0, len(overdue)),
		GeneratedAt:        now,
	}
	for _, student := range overdue {
		overview.Overdue = append(overview.Overdue, dto.OverdueStudent{
			StudentID:     student.ID,
			RollNo:        student.RollNo,
			FullName:      student.FullName,
			MonthlyFee:    student.MonthlyFee,
			DueDate:       student.DueDate,
			DaysOverdue:   -fees.DaysUntilDue(student.DueDate, now),
			StatusMessage: fees.StatusMessage(student.DueDate, now),
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, overview, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard overview", zap.Error(err))
		}
	}

	return overview, false, nil
}

func startOfToday(now time.Time) time.Time {
	year, month, day := now.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
