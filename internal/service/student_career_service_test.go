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

type stubMembershipRepo struct {
	memberships map[string]models.StudentCareer
	hasActive   map[string]bool
	created     *models.StudentCareer
	setActive   map[string]bool
}

func (m *stubMembershipRepo) List(ctx context.Context, filter models.StudentCareerFilter) ([]models.StudentCareerDetail, int, error) {
	return nil, 0, nil
}

func (m *stubMembershipRepo) FindByID(ctx context.Context, id string) (*models.StudentCareer, error) {
	if membership, ok := m.memberships[id]; ok {
		return &membership, nil
	}
	return nil, sql.ErrNoRows
}

func (m *stubMembershipRepo) FindDetailByID(ctx context.Context, id string) (*models.StudentCareerDetail, error) {
	if membership, ok := m.memberships[id]; ok {
		return &models.StudentCareerDetail{StudentCareer: membership}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *stubMembershipRepo) ExistsActiveByStudent(ctx context.Context, studentID string) (bool, error) {
	return m.hasActive[studentID], nil
}

func (m *stubMembershipRepo) Create(ctx context.Context, membership *models.StudentCareer) error {
	membership.ID = "sc-new"
	m.created = membership
	return nil
}

func (m *stubMembershipRepo) SetActive(ctx context.Context, id string, active bool) error {
	if m.setActive == nil {
		m.setActive = map[string]bool{}
	}
	m.setActive[id] = active
	return nil
}

type stubStudentReader struct {
	students map[string]*models.Student
}

func (m *stubStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if student, ok := m.students[id]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

func newMembershipFixture(repo *stubMembershipRepo) *StudentCareerService {
	students := &stubStudentReader{students: map[string]*models.Student{"stu-1": {ID: "stu-1", Active: true}}}
	careers := &stubCareerReader{careers: map[string]*models.Career{"car-1": {ID: "car-1", Active: true}}}
	return NewStudentCareerService(repo, students, careers, nil, nil)
}

func TestStudentCareerCreate(t *testing.T) {
	repo := &stubMembershipRepo{}
	svc := newMembershipFixture(repo)

	membership, err := svc.Create(context.Background(), CreateStudentCareerRequest{StudentID: "stu-1", CareerID: "car-1"})
	require.NoError(t, err)
	assert.Equal(t, "sc-new", membership.ID)
	assert.True(t, membership.Active)
	assert.False(t, membership.StartDate.IsZero())
}

func TestStudentCareerCreateRejectsSecondActiveMembership(t *testing.T) {
	repo := &stubMembershipRepo{hasActive: map[string]bool{"stu-1": true}}
	svc := newMembershipFixture(repo)

	_, err := svc.Create(context.Background(), CreateStudentCareerRequest{StudentID: "stu-1", CareerID: "car-1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "student already has an active career", appErr.Message)
}

func TestStudentCareerCreateRejectsInactiveStudent(t *testing.T) {
	repo := &stubMembershipRepo{}
	svc := newMembershipFixture(repo)
	svc.students.(*stubStudentReader).students["stu-1"].Active = false

	_, err := svc.Create(context.Background(), CreateStudentCareerRequest{StudentID: "stu-1", CareerID: "car-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestStudentCareerDeactivate(t *testing.T) {
	repo := &stubMembershipRepo{memberships: map[string]models.StudentCareer{
		"sc-1": {ID: "sc-1", StudentID: "stu-1", CareerID: "car-1", Active: true},
	}}
	svc := newMembershipFixture(repo)

	require.NoError(t, svc.Deactivate(context.Background(), "sc-1"))
	assert.False(t, repo.setActive["sc-1"])
}

func TestStudentCareerDeactivateAlreadyInactive(t *testing.T) {
	repo := &stubMembershipRepo{memberships: map[string]models.StudentCareer{
		"sc-1": {ID: "sc-1", StudentID: "stu-1", Active: false},
	}}
	svc := newMembershipFixture(repo)

	err := svc.Deactivate(context.Background(), "sc-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestStudentCareerReactivate(t *testing.T) {
	repo := &stubMembershipRepo{memberships: map[string]models.StudentCareer{
		"sc-1": {ID: "sc-1", StudentID: "stu-1", Active: false},
	}}
	svc := newMembershipFixture(repo)

	require.NoError(t, svc.Reactivate(context.Background(), "sc-1"))
	assert.True(t, repo.setActive["sc-1"])
}

func TestStudentCareerReactivateBlockedByOtherActiveMembership(t *testing.T) {
	repo := &stubMembershipRepo{
		memberships: map[string]models.StudentCareer{
			"sc-1": {ID: "sc-1", StudentID: "stu-1", Active: false},
		},
		hasActive: map[string]bool{"stu-1": true},
	}
	svc := newMembershipFixture(repo)

	err := svc.Reactivate(context.Background(), "sc-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.setActive)
}
