package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academico-sys/siu-api/internal/models"
	appErrors "github.com/academico-sys/siu-api/pkg/errors"
)

type stubGradeRepo struct {
	grades  map[string]models.Grade
	created *models.Grade
	updated *models.Grade
}

func (m *stubGradeRepo) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, int, error) {
	return nil, 0, nil
}

func (m *stubGradeRepo) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	if grade, ok := m.grades[id]; ok {
		return &grade, nil
	}
	return nil, sql.ErrNoRows
}

func (m *stubGradeRepo) Create(ctx context.Context, grade *models.Grade) error {
	grade.ID = "grade-new"
	m.created = grade
	return nil
}

func (m *stubGradeRepo) Update(ctx context.Context, grade *models.Grade) error {
	m.updated = grade
	return nil
}

func (m *stubGradeRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.grades[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.grades, id)
	return nil
}

type stubEnrollmentReader struct {
	enrollments map[string]*models.Enrollment
}

func (m *stubEnrollmentReader) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if enrollment, ok := m.enrollments[id]; ok {
		return enrollment, nil
	}
	return nil, sql.ErrNoRows
}

func TestGradeRecord(t *testing.T) {
	repo := &stubGradeRepo{}
	enrollments := &stubEnrollmentReader{enrollments: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", Active: true},
	}}
	svc := NewGradeService(repo, enrollments, nil, nil)

	grade, err := svc.Record(context.Background(), RecordGradeRequest{
		EnrollmentID: "enr-1",
		Type:         models.GradeTypeFinal,
		Score:        8.5,
		Notes:        "  oral exam  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "grade-new", grade.ID)
	assert.Equal(t, 8.5, grade.Score)
	assert.Equal(t, "oral exam", grade.Notes)
}

func TestGradeRecordRejectsWithdrawnEnrollment(t *testing.T) {
	enrollments := &stubEnrollmentReader{enrollments: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", Active: false},
	}}
	svc := NewGradeService(&stubGradeRepo{}, enrollments, nil, nil)

	_, err := svc.Record(context.Background(), RecordGradeRequest{EnrollmentID: "enr-1", Type: models.GradeTypeFinal, Score: 7})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	assert.Equal(t, "enrollment is withdrawn", appErr.Message)
}

func TestGradeRecordRejectsUnknownType(t *testing.T) {
	enrollments := &stubEnrollmentReader{enrollments: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", Active: true},
	}}
	svc := NewGradeService(&stubGradeRepo{}, enrollments, nil, nil)

	_, err := svc.Record(context.Background(), RecordGradeRequest{EnrollmentID: "enr-1", Type: "MIDTERM", Score: 7})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGradeRecordRejectsScoreOutOfRange(t *testing.T) {
	enrollments := &stubEnrollmentReader{enrollments: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", Active: true},
	}}
	svc := NewGradeService(&stubGradeRepo{}, enrollments, nil, nil)

	_, err := svc.Record(context.Background(), RecordGradeRequest{EnrollmentID: "enr-1", Type: models.GradeTypeFinal, Score: 11})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGradeUpdate(t *testing.T) {
	repo := &stubGradeRepo{grades: map[string]models.Grade{
		"grade-1": {ID: "grade-1", EnrollmentID: "enr-1", Type: models.GradeTypeFinal, Score: 4},
	}}
	svc := NewGradeService(repo, &stubEnrollmentReader{}, nil, nil)

	grade, err := svc.Update(context.Background(), "grade-1", UpdateGradeRequest{Score: 6, Notes: "recount"})
	require.NoError(t, err)
	assert.Equal(t, 6.0, grade.Score)
	assert.Equal(t, "recount", grade.Notes)
	require.NotNil(t, repo.updated)
}

func TestGradeDeleteMissing(t *testing.T) {
	svc := NewGradeService(&stubGradeRepo{}, &stubEnrollmentReader{}, nil, nil)

	err := svc.Delete(context.Background(), "grade-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
