package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestCareerCourseRepositoryListPrerequisites(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCareerCourseRepository(db)

	rows := sqlmock.NewRows([]string{"requires_id", "course_id", "course_code", "course_name"}).
		AddRow("cc-1", "course-1", "MAT101", "Algebra").
		AddRow("cc-2", "course-2", "MAT102", "Analysis")
	mock.ExpectQuery("SELECT p.requires_id, cc.course_id, co.code AS course_code").
		WithArgs("cc-3").
		WillReturnRows(rows)

	prerequisites, err := repo.ListPrerequisites(context.Background(), "cc-3")
	require.NoError(t, err)
	require.Len(t, prerequisites, 2)
	require.Equal(t, "MAT101", prerequisites[0].CourseCode)
	require.Equal(t, "Analysis", prerequisites[1].CourseName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCareerCourseRepositoryAddPrerequisite(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCareerCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO career_course_prerequisites (career_course_id, requires_id, created_at) VALUES ($1, $2, $3)")).
		WithArgs("cc-3", "cc-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.AddPrerequisite(context.Background(), "cc-3", "cc-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCareerCourseRepositoryRemovePrerequisite(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCareerCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM career_course_prerequisites WHERE career_course_id = $1 AND requires_id = $2")).
		WithArgs("cc-3", "cc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RemovePrerequisite(context.Background(), "cc-3", "cc-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
