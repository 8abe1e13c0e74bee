package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academico-sys/siu-api/internal/middleware"
	"github.com/academico-sys/siu-api/internal/models"
	"github.com/academico-sys/siu-api/internal/service"
	appErrors "github.com/academico-sys/siu-api/pkg/errors"
	"github.com/academico-sys/siu-api/pkg/response"
)

type sectionLockerMock struct {
	detail *models.SectionDetail
}

func (m *sectionLockerMock) FindByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	if m.detail == nil {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

func (m *sectionLockerMock) FindByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.SectionDetail, error) {
	return m.FindByID(ctx, id)
}

func (m *sectionLockerMock) IncrementOccupancy(ctx context.Context, tx *sqlx.Tx, id string) error {
	return nil
}

func (m *sectionLockerMock) DecrementOccupancy(ctx context.Context, tx *sqlx.Tx, id string) error {
	return nil
}

func (m *sectionLockerMock) ListOccupancyDrift(ctx context.Context) ([]models.OccupancyDrift, error) {
	return nil, nil
}

func (m *sectionLockerMock) ResetOccupancy(ctx context.Context, tx *sqlx.Tx, id string) error {
	return nil
}

type enrollmentStoreMock struct {
	duplicateSection bool
}

func (m *enrollmentStoreMock) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *enrollmentStoreMock) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	return nil, sql.ErrNoRows
}

func (m *enrollmentStoreMock) FindByIDTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Enrollment, error) {
	return nil, sql.ErrNoRows
}

func (m *enrollmentStoreMock) ExistsActiveBySection(ctx context.Context, tx *sqlx.Tx, studentCareerID, sectionID string) (bool, error) {
	return m.duplicateSection, nil
}

func (m *enrollmentStoreMock) ExistsActiveByCourseTerm(ctx context.Context, tx *sqlx.Tx, studentCareerID, courseID, termID string) (bool, error) {
	return false, nil
}

func (m *enrollmentStoreMock) CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error {
	enrollment.ID = "enr-new"
	return nil
}

func (m *enrollmentStoreMock) WithdrawTx(ctx context.Context, tx *sqlx.Tx, id string, withdrawnAt time.Time) (bool, error) {
	return true, nil
}

type membershipReaderMock struct {
	membership *models.StudentCareer
}

func (m *membershipReaderMock) FindByID(ctx context.Context, id string) (*models.StudentCareer, error) {
	if m.membership == nil {
		return nil, sql.ErrNoRows
	}
	return m.membership, nil
}

type studentReaderMock struct {
	student *models.Student
}

func (m *studentReaderMock) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if m.student == nil {
		return nil, sql.ErrNoRows
	}
	return m.student, nil
}

type checkerMock struct {
	err error
}

func (m *checkerMock) Check(ctx context.Context, studentCareerID string, section *models.SectionDetail) error {
	return m.err
}

type auditorMock struct{}

func (m *auditorMock) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return nil
}

func newEnrollmentHandlerFixture(t *testing.T, sections *sectionLockerMock, store *enrollmentStoreMock, checker *checkerMock, commits int) *EnrollmentHandler {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	for i := 0; i < commits; i++ {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()
	}
	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	memberships := &membershipReaderMock{membership: &models.StudentCareer{ID: "sc-1", StudentID: "stu-1", CareerID: "car-1", Active: true}}
	students := &studentReaderMock{student: &models.Student{ID: "stu-1", UserID: "usr-1", Active: true}}
	svc := service.NewEnrollmentService(sqlx.NewDb(db, "sqlmock"), sections, store, memberships, students, checker, &auditorMock{}, time.Second, nil, nil)
	return NewEnrollmentHandler(svc)
}

func openSectionDetail() *models.SectionDetail {
	return &models.SectionDetail{
		Section: models.Section{
			ID:             "sec-1",
			CareerCourseID: "cc-1",
			TermID:         "term-1",
			Name:           "A",
			MaxCapacity:    30,
			Occupancy:      10,
			Active:         true,
		},
		CareerID:   "car-1",
		CourseID:   "course-1",
		CourseCode: "MAT101",
		CourseName: "Algebra",
	}
}

func postAdmission(t *testing.T, h *EnrollmentHandler, payload any) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, _ := http.NewRequest(http.MethodPost, "/enrollments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "usr-1", Role: models.RoleStudent})

	h.Admit(c)
	return w
}

func TestEnrollmentHandlerAdmitCreated(t *testing.T) {
	h := newEnrollmentHandlerFixture(t, &sectionLockerMock{detail: openSectionDetail()}, &enrollmentStoreMock{}, &checkerMock{}, 1)

	w := postAdmission(t, h, service.EnrollRequest{StudentCareerID: "sc-1", SectionID: "sec-1"})
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "enr-new", data["id"])
	assert.Equal(t, true, data["active"])
}

func TestEnrollmentHandlerAdmitInvalidBody(t *testing.T) {
	h := newEnrollmentHandlerFixture(t, &sectionLockerMock{detail: openSectionDetail()}, &enrollmentStoreMock{}, &checkerMock{}, 0)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/enrollments", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Admit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentHandlerAdmitForeignMembershipForbidden(t *testing.T) {
	h := newEnrollmentHandlerFixture(t, &sectionLockerMock{detail: openSectionDetail()}, &enrollmentStoreMock{}, &checkerMock{}, 0)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, err := json.Marshal(service.EnrollRequest{StudentCareerID: "sc-1", SectionID: "sec-1"})
	require.NoError(t, err)
	req, _ := http.NewRequest(http.MethodPost, "/enrollments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "usr-2", Role: models.RoleStudent})

	h.Admit(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestEnrollmentHandlerAdmitDuplicateConflict(t *testing.T) {
	h := newEnrollmentHandlerFixture(t, &sectionLockerMock{detail: openSectionDetail()}, &enrollmentStoreMock{duplicateSection: true}, &checkerMock{}, 0)

	w := postAdmission(t, h, service.EnrollRequest{StudentCareerID: "sc-1", SectionID: "sec-1"})
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrAlreadyEnrolledSection.Code, envelope.Error.Code)
}

func TestEnrollmentHandlerAdmitUnmetPrerequisites(t *testing.T) {
	checker := &checkerMock{err: appErrors.WithDetails(appErrors.Clone(appErrors.ErrUnmetPrerequisites, "missing prerequisites"), "MAT101 Algebra")}
	h := newEnrollmentHandlerFixture(t, &sectionLockerMock{detail: openSectionDetail()}, &enrollmentStoreMock{}, checker, 0)

	w := postAdmission(t, h, service.EnrollRequest{StudentCareerID: "sc-1", SectionID: "sec-1"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, []string{"MAT101 Algebra"}, envelope.Error.Details)
}
