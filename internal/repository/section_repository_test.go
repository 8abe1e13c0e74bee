package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func sectionDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "career_course_id", "term_id", "name", "max_capacity", "occupancy", "teacher_id", "active", "created_at", "updated_at",
		"career_id", "course_id", "course_code", "course_name", "term_name",
	}).AddRow("sec-1", "cc-1", "term-1", "A", 30, 12, nil, true, time.Now(), time.Now(), "car-1", "course-1", "MAT101", "Algebra", "2026-1C")
}

func TestSectionRepositoryFindByIDForUpdateLocksRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM sections s .+ WHERE s.id = \\$1 FOR UPDATE OF s").
		WithArgs("sec-1").
		WillReturnRows(sectionDetailRows())

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	section, err := repo.FindByIDForUpdate(context.Background(), tx, "sec-1")
	require.NoError(t, err)
	require.Equal(t, "sec-1", section.ID)
	require.Equal(t, "car-1", section.CareerID)
	require.Equal(t, "course-1", section.CourseID)
	require.True(t, section.HasCapacity())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryIncrementOccupancy(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sections SET occupancy = occupancy + 1, updated_at = $2 WHERE id = $1")).
		WithArgs("sec-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, repo.IncrementOccupancy(context.Background(), tx, "sec-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryDecrementOccupancyFloorsAtZero(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sections SET occupancy = GREATEST(occupancy - 1, 0), updated_at = $2 WHERE id = $1")).
		WithArgs("sec-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, repo.DecrementOccupancy(context.Background(), tx, "sec-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryListOccupancyDrift(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	rows := sqlmock.NewRows([]string{"section_id", "section_name", "occupancy", "active_count"}).
		AddRow("sec-1", "A", 13, 12)
	mock.ExpectQuery("SELECT s.id AS section_id, s.name AS section_name, s.occupancy").
		WillReturnRows(rows)

	drift, err := repo.ListOccupancyDrift(context.Background())
	require.NoError(t, err)
	require.Len(t, drift, 1)
	require.Equal(t, 13, drift[0].Occupancy)
	require.Equal(t, 12, drift[0].ActiveCount)
}

func TestSectionRepositoryResetOccupancy(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE sections SET occupancy = \\(").
		WithArgs("sec-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, repo.ResetOccupancy(context.Background(), tx, "sec-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryExistsByName(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM sections WHERE career_course_id = $1 AND term_id = $2 AND name = $3 LIMIT 1")).
		WithArgs("cc-1", "term-1", "A").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByName(context.Background(), "cc-1", "term-1", "A", "")
	require.NoError(t, err)
	require.True(t, exists)
}
