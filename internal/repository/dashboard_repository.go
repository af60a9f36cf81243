package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mess-fee-api/internal/fees"
	"github.com/noah-isme/mess-fee-api/internal/models"
)

// DashboardRepository runs the aggregate queries behind the admin overview.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs a DashboardRepository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// CountsByStatus returns the number of students per lifecycle status.
func (r *DashboardRepository) CountsByStatus(ctx context.Context) (map[fees.StudentStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM students GROUP BY status`
	rows := []struct {
		Status fees.StudentStatus `db:"status"`
		Count  int                `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count students by status: %w", err)
	}
	counts := make(map[fees.StudentStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// TopOverdue lists students whose due date falls before the given day, oldest first.
func (r *DashboardRepository) TopOverdue(ctx context.Context, before time.Time, limit int) ([]models.Student, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT %s FROM students WHERE status <> $1 AND due_date < $2 ORDER BY due_date ASC LIMIT %d`, studentColumns, limit)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, fees.StudentInactive, before); err != nil {
		return nil, fmt.Errorf("list overdue students: %w", err)
	}
	return students, nil
}
