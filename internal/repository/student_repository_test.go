package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mess-fee-api/internal/fees"
	"github.com/noah-isme/mess-fee-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "roll_no", "full_name", "phone", "room", "monthly_fee", "registration_date", "due_date", "absent_days", "status", "created_at", "updated_at"}).
		AddRow("1", "R-001", "Student", "123", "A-12", "3000", time.Now(), time.Now(), 0, "active", time.Now(), time.Now())
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, roll_no, full_name, phone, room, monthly_fee, registration_date, due_date, absent_days, status, created_at, updated_at FROM students WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(studentRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListFiltersStatusAndSearch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT id, roll_no, .+ FROM students WHERE 1=1 AND status = \\$1 AND \\(LOWER\\(full_name\\) LIKE \\$2 OR LOWER\\(roll_no\\) LIKE \\$2\\) ORDER BY full_name ASC").
		WithArgs("fees_due", "%doe%").
		WillReturnRows(studentRows())
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM students").
		WithArgs("fees_due", "%doe%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, _, err := repo.List(context.Background(), models.StudentFilter{
		Search:    "Doe",
		Status:    "fees_due",
		SortBy:    "full_name",
		SortOrder: "asc",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{
		RollNo:           "R-001",
		FullName:         "Student",
		MonthlyFee:       decimal.NewFromInt(3000),
		RegistrationDate: time.Now(),
		DueDate:          time.Now().AddDate(0, 1, 0),
		Status:           fees.StudentActive,
	}
	err := repo.Create(context.Background(), student)
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByRollNo(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE roll_no = $1 LIMIT 1")).
		WithArgs("R-001").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))

	exists, err := repo.ExistsByRollNo(context.Background(), "R-001", "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateBilling(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	due := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET due_date = $2, status = $3, absent_days = $4, updated_at = $5 WHERE id = $1")).
		WithArgs("id1", due, fees.StudentActive, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateBilling(context.Background(), "id1", due, fees.StudentActive, 0)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("id1", fees.StudentInactive, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Deactivate(context.Background(), "id1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
