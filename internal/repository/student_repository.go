package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mess-fee-api/internal/fees"
	"github.com/noah-isme/mess-fee-api/internal/models"
)

const studentColumns = "id, roll_no, full_name, phone, room, monthly_fee, registration_date, due_date, absent_days, status, created_at, updated_at"

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(roll_no) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"full_name":  "full_name",
		"roll_no":    "roll_no",
		"due_date":   "due_date",
		"created_at": "created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, base, column, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListByStatuses returns every student in one of the given lifecycle states.
func (r *StudentRepository) ListByStatuses(ctx context.Context, statuses ...fees.StudentStatus) ([]models.Student, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = s
	}
	query := fmt.Sprintf("SELECT %s FROM students WHERE status IN (%s) ORDER BY due_date ASC", studentColumns, strings.Join(placeholders, ", "))

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students by status: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByRollNo checks if a student with the given roll number exists,
// optionally excluding an ID.
func (r *StudentRepository) ExistsByRollNo(ctx context.Context, rollNo string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE roll_no = $1"
	args := []interface{}{rollNo}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check roll number: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, roll_no, full_name, phone, room, monthly_fee, registration_date, due_date, absent_days, status, created_at, updated_at)
        VALUES (:id, :roll_no, :full_name, :phone, :room, :monthly_fee, :registration_date, :due_date, :absent_days, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET roll_no = :roll_no, full_name = :full_name, phone = :phone, room = :room, monthly_fee = :monthly_fee, registration_date = :registration_date, due_date = :due_date, absent_days = :absent_days, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// UpdateBilling advances the due date and lifecycle status after a payment.
func (r *StudentRepository) UpdateBilling(ctx context.Context, id string, dueDate time.Time, status fees.StudentStatus, absentDays int) error {
	const query = `UPDATE students SET due_date = $2, status = $3, absent_days = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, dueDate, status, absentDays, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student billing: %w", err)
	}
	return nil
}

// UpdateStatus writes back a recomputed lifecycle status.
func (r *StudentRepository) UpdateStatus(ctx context.Context, id string, status fees.StudentStatus) error {
	const query = `UPDATE students SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student status: %w", err)
	}
	return nil
}

// Deactivate marks a student as inactive.
func (r *StudentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE students SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, fees.StudentInactive, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	return nil
}
