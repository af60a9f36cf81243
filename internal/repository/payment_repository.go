package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/mess-fee-api/internal/models"
)

// PaymentRepository manages persistence for payment records.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a new payment record.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO payments (id, student_id, amount, monthly_fee, absent_days, period, method, note, recorded_by, created_at)
        VALUES (:id, :student_id, :amount, :monthly_fee, :absent_days, :period, :method, :note, :recorded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// List returns payments joined with student context, filtered and paginated.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error) {
	base := "FROM payments p JOIN students s ON s.id = p.student_id"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("p.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Month != nil {
		start := time.Date(filter.Month.Year(), filter.Month.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		conditions = append(conditions, fmt.Sprintf("p.created_at >= $%d AND p.created_at < $%d", len(args)+1, len(args)+2))
		args = append(args, start, end)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT p.id, p.student_id, p.amount, p.monthly_fee, p.absent_days, p.period, p.method, p.note, p.recorded_by, p.created_at,
        s.full_name AS student_name, s.roll_no
        %s ORDER BY p.created_at DESC LIMIT %d OFFSET %d`, base, size, offset)

	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}

// SummaryForMonth aggregates the amount collected within a calendar month.
func (r *PaymentRepository) SummaryForMonth(ctx context.Context, month time.Time) (*models.MonthlySummary, error) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	const query = `SELECT COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count FROM payments WHERE created_at >= $1 AND created_at < $2`
	var row struct {
		Total decimal.Decimal `db:"total"`
		Count int             `db:"count"`
	}
	if err := r.db.GetContext(ctx, &row, query, start, end); err != nil {
		return nil, fmt.Errorf("summarise payments: %w", err)
	}
	return &models.MonthlySummary{Month: start, TotalCollected: row.Total, PaymentCount: row.Count}, nil
}
