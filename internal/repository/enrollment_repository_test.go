package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/academico-sys/siu-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func enrollmentColumns() []string {
	return []string{"id", "student_career_id", "section_id", "course_id", "term_id", "active", "enrolled_at", "withdrawn_at"}
}

func TestEnrollmentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows(enrollmentColumns()).
		AddRow("enr-1", "sc-1", "sec-1", "course-1", "term-1", true, time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_career_id, section_id, course_id, term_id, active, enrolled_at, withdrawn_at FROM enrollments WHERE id = $1")).
		WithArgs("enr-1").
		WillReturnRows(rows)

	enrollment, err := repo.FindByID(context.Background(), "enr-1")
	require.NoError(t, err)
	require.Equal(t, "enr-1", enrollment.ID)
	require.True(t, enrollment.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsActiveBySection(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_career_id = $1 AND section_id = $2 AND active LIMIT 1")).
		WithArgs("sc-1", "sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	exists, err := repo.ExistsActiveBySection(context.Background(), tx, "sc-1", "sec-1")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsActiveBySectionMiss(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_career_id = $1 AND section_id = $2 AND active LIMIT 1")).
		WithArgs("sc-1", "sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	exists, err := repo.ExistsActiveBySection(context.Background(), tx, "sc-1", "sec-1")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestEnrollmentRepositoryExistsActiveByCourseTerm(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_career_id = $1 AND course_id = $2 AND term_id = $3 AND active LIMIT 1")).
		WithArgs("sc-1", "course-1", "term-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	exists, err := repo.ExistsActiveByCourseTerm(context.Background(), tx, "sc-1", "course-1", "term-1")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestEnrollmentRepositoryCreateTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(1, 1))

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	enrollment := &models.Enrollment{
		StudentCareerID: "sc-1",
		SectionID:       "sec-1",
		CourseID:        "course-1",
		TermID:          "term-1",
		Active:          true,
	}
	require.NoError(t, repo.CreateTx(context.Background(), tx, enrollment))
	require.NotEmpty(t, enrollment.ID)
	require.False(t, enrollment.EnrolledAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryWithdrawTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	withdrawnAt := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET active = FALSE, withdrawn_at = $2 WHERE id = $1 AND active")).
		WithArgs("enr-1", withdrawnAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	withdrawn, err := repo.WithdrawTx(context.Background(), tx, "enr-1", withdrawnAt)
	require.NoError(t, err)
	require.True(t, withdrawn)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryWithdrawTxAlreadyInactive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	withdrawnAt := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET active = FALSE, withdrawn_at = $2 WHERE id = $1 AND active")).
		WithArgs("enr-1", withdrawnAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	withdrawn, err := repo.WithdrawTx(context.Background(), tx, "enr-1", withdrawnAt)
	require.NoError(t, err)
	require.False(t, withdrawn)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCountActiveBySection(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND active")).
		WithArgs("sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	count, err := repo.CountActiveBySection(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Equal(t, 12, count)
}
