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

type stubCurriculumRepo struct {
	links         map[string]models.CareerCourse
	linked        map[string]bool
	prerequisites map[string][]models.PrerequisiteDetail
	created       *models.CareerCourse
	addedEdges    [][2]string
	removedEdges  [][2]string
}

func (m *stubCurriculumRepo) List(ctx context.Context, filter models.CareerCourseFilter) ([]models.CareerCourseDetail, int, error) {
	return nil, 0, nil
}

func (m *stubCurriculumRepo) FindByID(ctx context.Context, id string) (*models.CareerCourse, error) {
	if link, ok := m.links[id]; ok {
		return &link, nil
	}
	return nil, sql.ErrNoRows
}

func (m *stubCurriculumRepo) ExistsByCareerAndCourse(ctx context.Context, careerID, courseID string) (bool, error) {
	return m.linked[careerID+courseID], nil
}

func (m *stubCurriculumRepo) Create(ctx context.Context, link *models.CareerCourse) error {
	link.ID = "cc-new"
	m.created = link
	return nil
}

func (m *stubCurriculumRepo) Update(ctx context.Context, link *models.CareerCourse) error {
	return nil
}

func (m *stubCurriculumRepo) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *stubCurriculumRepo) AddPrerequisite(ctx context.Context, careerCourseID, requiresID string) error {
	m.addedEdges = append(m.addedEdges, [2]string{careerCourseID, requiresID})
	return nil
}

func (m *stubCurriculumRepo) RemovePrerequisite(ctx context.Context, careerCourseID, requiresID string) error {
	m.removedEdges = append(m.removedEdges, [2]string{careerCourseID, requiresID})
	return nil
}

func (m *stubCurriculumRepo) ListPrerequisites(ctx context.Context, careerCourseID string) ([]models.PrerequisiteDetail, error) {
	return m.prerequisites[careerCourseID], nil
}

type stubCareerReader struct {
	careers map[string]*models.Career
}

func (m *stubCareerReader) FindByID(ctx context.Context, id string) (*models.Career, error) {
	if c, ok := m.careers[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type stubCourseReader struct {
	courses map[string]*models.Course
}

func (m *stubCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func newCurriculumService(repo *stubCurriculumRepo) *CareerCourseService {
	careers := &stubCareerReader{careers: map[string]*models.Career{"car-1": {ID: "car-1", Active: true}}}
	courses := &stubCourseReader{courses: map[string]*models.Course{"course-1": {ID: "course-1", Active: true}}}
	return NewCareerCourseService(repo, careers, courses, nil, nil)
}

func TestCareerCourseCreate(t *testing.T) {
	repo := &stubCurriculumRepo{}
	svc := newCurriculumService(repo)

	link, err := svc.Create(context.Background(), CreateCareerCourseRequest{CareerID: "car-1", CourseID: "course-1", Year: 2, Mandatory: true})
	require.NoError(t, err)
	assert.Equal(t, "cc-new", link.ID)
	assert.Equal(t, 2, link.Year)
}

func TestCareerCourseCreateRejectsDuplicate(t *testing.T) {
	repo := &stubCurriculumRepo{linked: map[string]bool{"car-1course-1": true}}
	svc := newCurriculumService(repo)

	_, err := svc.Create(context.Background(), CreateCareerCourseRequest{CareerID: "car-1", CourseID: "course-1", Year: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAddPrerequisiteRejectsSelfReference(t *testing.T) {
	repo := &stubCurriculumRepo{links: map[string]models.CareerCourse{"cc-1": {ID: "cc-1", CareerID: "car-1"}}}
	svc := newCurriculumService(repo)

	err := svc.AddPrerequisite(context.Background(), "cc-1", AddPrerequisiteRequest{RequiresID: "cc-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.addedEdges)
}

func TestAddPrerequisiteRejectsCrossCareerEdge(t *testing.T) {
	repo := &stubCurriculumRepo{links: map[string]models.CareerCourse{
		"cc-1": {ID: "cc-1", CareerID: "car-1"},
		"cc-2": {ID: "cc-2", CareerID: "car-other"},
	}}
	svc := newCurriculumService(repo)

	err := svc.AddPrerequisite(context.Background(), "cc-1", AddPrerequisiteRequest{RequiresID: "cc-2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAddPrerequisiteRejectsDuplicateEdge(t *testing.T) {
	repo := &stubCurriculumRepo{
		links: map[string]models.CareerCourse{
			"cc-1": {ID: "cc-1", CareerID: "car-1"},
			"cc-2": {ID: "cc-2", CareerID: "car-1"},
		},
		prerequisites: map[string][]models.PrerequisiteDetail{
			"cc-1": {{RequiresID: "cc-2", CourseID: "course-2"}},
		},
	}
	svc := newCurriculumService(repo)

	err := svc.AddPrerequisite(context.Background(), "cc-1", AddPrerequisiteRequest{RequiresID: "cc-2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAddPrerequisiteSameCareer(t *testing.T) {
	repo := &stubCurriculumRepo{links: map[string]models.CareerCourse{
		"cc-1": {ID: "cc-1", CareerID: "car-1"},
		"cc-2": {ID: "cc-2", CareerID: "car-1"},
	}}
	svc := newCurriculumService(repo)

	require.NoError(t, svc.AddPrerequisite(context.Background(), "cc-1", AddPrerequisiteRequest{RequiresID: "cc-2"}))
	assert.Equal(t, [][2]string{{"cc-1", "cc-2"}}, repo.addedEdges)
}

func TestRemovePrerequisite(t *testing.T) {
	repo := &stubCurriculumRepo{links: map[string]models.CareerCourse{"cc-1": {ID: "cc-1", CareerID: "car-1"}}}
	svc := newCurriculumService(repo)

	require.NoError(t, svc.RemovePrerequisite(context.Background(), "cc-1", "cc-2"))
	assert.Equal(t, [][2]string{{"cc-1", "cc-2"}}, repo.removedEdges)
}
