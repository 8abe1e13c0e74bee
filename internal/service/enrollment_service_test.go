package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academico-sys/siu-api/internal/models"
	appErrors "github.com/academico-sys/siu-api/pkg/errors"
)

type stubSectionLocker struct {
	detail      *models.SectionDetail
	lockErr     error
	incErr      error
	incremented int
	decremented int
	drift       []models.OccupancyDrift
	resets      []string
}

func (m *stubSectionLocker) FindByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	if m.detail == nil {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

func (m *stubSectionLocker) FindByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.SectionDetail, error) {
	if m.lockErr != nil {
		return nil, m.lockErr
	}
	if m.detail == nil {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

func (m *stubSectionLocker) IncrementOccupancy(ctx context.Context, tx *sqlx.Tx, id string) error {
	if m.incErr != nil {
		return m.incErr
	}
	m.incremented++
	return nil
}

func (m *stubSectionLocker) DecrementOccupancy(ctx context.Context, tx *sqlx.Tx, id string) error {
	m.decremented++
	return nil
}

func (m *stubSectionLocker) ListOccupancyDrift(ctx context.Context) ([]models.OccupancyDrift, error) {
	return m.drift, nil
}

func (m *stubSectionLocker) ResetOccupancy(ctx context.Context, tx *sqlx.Tx, id string) error {
	m.resets = append(m.resets, id)
	return nil
}

type stubEnrollmentStore struct {
	enrollments   map[string]models.Enrollment
	activeSection bool
	activeCourse  bool
	createErr     error
	created       *models.Enrollment
	withdrawn     []string
	withdrawRaced bool
}

func (m *stubEnrollmentStore) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *stubEnrollmentStore) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *stubEnrollmentStore) FindByIDTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Enrollment, error) {
	return m.FindByID(ctx, id)
}

func (m *stubEnrollmentStore) ExistsActiveBySection(ctx context.Context, tx *sqlx.Tx, studentCareerID, sectionID string) (bool, error) {
	return m.activeSection, nil
}

func (m *stubEnrollmentStore) ExistsActiveByCourseTerm(ctx context.Context, tx *sqlx.Tx, studentCareerID, courseID, termID string) (bool, error) {
	return m.activeCourse, nil
}

func (m *stubEnrollmentStore) CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	enrollment.ID = "enr-new"
	m.created = enrollment
	return nil
}

func (m *stubEnrollmentStore) WithdrawTx(ctx context.Context, tx *sqlx.Tx, id string, withdrawnAt time.Time) (bool, error) {
	if m.withdrawRaced {
		return false, nil
	}
	m.withdrawn = append(m.withdrawn, id)
	return true, nil
}

type stubMembershipStore struct {
	memberships map[string]*models.StudentCareer
}

func (m *stubMembershipStore) FindByID(ctx context.Context, id string) (*models.StudentCareer, error) {
	if sc, ok := m.memberships[id]; ok {
		return sc, nil
	}
	return nil, sql.ErrNoRows
}

type stubChecker struct {
	err error
}

func (m *stubChecker) Check(ctx context.Context, studentCareerID string, section *models.SectionDetail) error {
	return m.err
}

type stubRecorder struct {
	outcomes []string
}

func (m *stubRecorder) RecordAdmission(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

type stubAuditor struct {
	logs []models.AuditLog
}

func (m *stubAuditor) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

type admissionFixture struct {
	mock     sqlmock.Sqlmock
	sections *stubSectionLocker
	store    *stubEnrollmentStore
	careers  *stubMembershipStore
	students *stubStudentReader
	checker  *stubChecker
	recorder *stubRecorder
	auditor  *stubAuditor
	svc      *EnrollmentService
	cleanup  func()
}

func adminActor() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func studentActor(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleStudent}
}

func openSection() *models.SectionDetail {
	return &models.SectionDetail{
		Section: models.Section{
			ID:          "sec-1",
			TermID:      "term-1",
			Name:        "A",
			MaxCapacity: 30,
			Occupancy:   10,
			Active:      true,
		},
		CareerID: "car-1",
		CourseID: "course-1",
	}
}

func activeMembership() *models.StudentCareer {
	return &models.StudentCareer{ID: "sc-1", StudentID: "stu-1", CareerID: "car-1", Active: true}
}

func newAdmissionFixture(t *testing.T) *admissionFixture {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	f := &admissionFixture{
		mock:     mock,
		sections: &stubSectionLocker{detail: openSection()},
		store:    &stubEnrollmentStore{},
		careers:  &stubMembershipStore{memberships: map[string]*models.StudentCareer{"sc-1": activeMembership()}},
		students: &stubStudentReader{students: map[string]*models.Student{"stu-1": {ID: "stu-1", UserID: "usr-1", Active: true}}},
		checker:  &stubChecker{},
		recorder: &stubRecorder{},
		auditor:  &stubAuditor{},
		cleanup:  func() { db.Close() },
	}
	f.svc = NewEnrollmentService(
		sqlx.NewDb(db, "sqlmock"),
		f.sections,
		f.store,
		f.careers,
		f.students,
		f.checker,
		f.auditor,
		time.Second,
		nil,
		nil,
	).WithRecorder(f.recorder)
	return f
}

func (f *admissionFixture) expectTx(commit bool) {
	f.mock.ExpectBegin()
	f.mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	if commit {
		f.mock.ExpectCommit()
	} else {
		f.mock.ExpectRollback()
	}
}

func admitRequest() EnrollRequest {
	return EnrollRequest{StudentCareerID: "sc-1", SectionID: "sec-1"}
}

func TestAdmitSuccess(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.expectTx(true)

	enrollment, err := f.svc.Admit(context.Background(), admitRequest(), adminActor())
	require.NoError(t, err)
	require.NotNil(t, enrollment)

	assert.True(t, enrollment.Active)
	assert.Equal(t, "course-1", enrollment.CourseID)
	assert.Equal(t, "term-1", enrollment.TermID)
	assert.Equal(t, 1, f.sections.incremented)
	assert.Equal(t, []string{"ADMITTED"}, f.recorder.outcomes)
	require.Len(t, f.auditor.logs, 1)
	assert.Equal(t, models.AuditActionEnroll, f.auditor.logs[0].Action)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAdmitStudentOwnMembership(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.expectTx(true)

	enrollment, err := f.svc.Admit(context.Background(), admitRequest(), studentActor("usr-1"))
	require.NoError(t, err)
	assert.True(t, enrollment.Active)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAdmitStudentForeignMembershipForbidden(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()

	_, err := f.svc.Admit(context.Background(), admitRequest(), studentActor("usr-other"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Zero(t, f.sections.incremented)
	assert.Empty(t, f.recorder.outcomes)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestWithdrawStudentForeignEnrollmentForbidden(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.store.enrollments = map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", StudentCareerID: "sc-1", SectionID: "sec-1", Active: true},
	}
	f.expectTx(false)

	_, err := f.svc.Withdraw(context.Background(), "enr-1", studentActor("usr-other"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.store.withdrawn)
	assert.Zero(t, f.sections.decremented)
}

func TestAdmitValidatesPayload(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()

	_, err := f.svc.Admit(context.Background(), EnrollRequest{}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAdmitSectionNotFound(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.sections.detail = nil
	f.expectTx(false)

	_, err := f.svc.Admit(context.Background(), admitRequest(), nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Equal(t, []string{appErrors.ErrNotFound.Code}, f.recorder.outcomes)
}

func TestAdmitInactiveCareerRejected(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.careers.memberships["sc-1"].Active = false
	f.expectTx(false)

	_, err := f.svc.Admit(context.Background(), admitRequest(), nil)
	assert.Equal(t, appErrors.ErrInactiveCareer, err)
	assert.Zero(t, f.sections.incremented)
}

func TestAdmitInactiveSectionRejected(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.sections.detail.Active = false
	f.expectTx(false)

	_, err := f.svc.Admit(context.Background(), admitRequest(), nil)
	assert.Equal(t, appErrors.ErrInactiveSection, err)
}

func TestAdmitWrongCareerRejected(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.sections.detail.CareerID = "car-other"
	f.expectTx(false)

	_, err := f.svc.Admit(context.Background(), admitRequest(), nil)
	assert.Equal(t, appErrors.ErrWrongCareer, err)
}

func TestAdmitFullSectionRejected(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.sections.detail.Occupancy = f.sections.detail.MaxCapacity
	f.expectTx(false)

	_, err := f.svc.Admit(context.Background(), admitRequest(), nil)
	assert.Equal(t, appErrors.ErrNoCapacity, err)
	assert.Nil(t, f.store.created)
}

func TestAdmitDuplicateSectionRejected(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.store.activeSection = true
	f.expectTx(false)

	_, err := f.svc.Admit(context.Background(), admitRequest(), nil)
	assert.Equal(t, appErrors.ErrAlreadyEnrolledSection, err)
}

func TestAdmitDuplicateCourseTermRejected(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.store.activeCourse = true
	f.expectTx(false)

	_, err := f.svc.Admit(context.Background(), admitRequest(), nil)
	assert.Equal(t, appErrors.ErrAlreadyEnrolledCourseTerm, err)
}

func TestAdmitUnmetPrerequisitesCarryCourseNames(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.checker.err = appErrors.WithDetails(appErrors.ErrUnmetPrerequisites, "MAT101 Algebra", "MAT102 Analysis")
	f.expectTx(false)

	_, err := f.svc.Admit(context.Background(), admitRequest(), nil)
	require.Error(t, err)
	rejection := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnmetPrerequisites.Code, rejection.Code)
	assert.Equal(t, []string{"MAT101 Algebra", "MAT102 Analysis"}, rejection.Details)
	assert.Equal(t, []string{appErrors.ErrUnmetPrerequisites.Code}, f.recorder.outcomes)
}

func TestAdmitCourseAlreadyApprovedRejected(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.checker.err = appErrors.ErrCourseAlreadyApproved
	f.expectTx(false)

	_, err := f.svc.Admit(context.Background(), admitRequest(), nil)
	assert.Equal(t, appErrors.ErrCourseAlreadyApproved, err)
}

// A withdrawn enrollment keeps its (student_career, section) row, so the
// insert hits the pair's unique constraint even though no active enrollment
// exists. The race is reported as the duplicate-section rejection.
func TestAdmitAfterWithdrawSameSectionRejected(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.store.createErr = &pq.Error{Code: "23505", Constraint: "enrollments_student_career_section_key"}
	f.expectTx(false)

	_, err := f.svc.Admit(context.Background(), admitRequest(), nil)
	assert.Equal(t, appErrors.ErrAlreadyEnrolledSection, err)
	assert.Zero(t, f.sections.incremented)
}

func TestAdmitUniqueRaceOnCourseTermReclassified(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.store.createErr = &pq.Error{Code: "23505", Constraint: "enrollments_active_course_term_key"}
	f.expectTx(false)

	_, err := f.svc.Admit(context.Background(), admitRequest(), nil)
	assert.Equal(t, appErrors.ErrAlreadyEnrolledCourseTerm, err)
}

func TestAdmitCapacityCheckRaceReclassified(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.sections.incErr = &pq.Error{Code: "23514", Constraint: "sections_occupancy_within_capacity"}
	f.expectTx(false)

	_, err := f.svc.Admit(context.Background(), admitRequest(), nil)
	assert.Equal(t, appErrors.ErrNoCapacity, err)
}

func TestAdmitLockTimeoutMapsToSectionBusy(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.sections.lockErr = &pq.Error{Code: "55P03"}
	f.expectTx(false)

	_, err := f.svc.Admit(context.Background(), admitRequest(), nil)
	assert.Equal(t, appErrors.ErrSectionBusy, err)
	assert.Equal(t, appErrors.ErrSectionBusy.Status, appErrors.FromError(err).Status)
}

func TestAdmitInternalErrorNotReclassified(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.store.createErr = errors.New("connection reset")
	f.expectTx(false)

	_, err := f.svc.Admit(context.Background(), admitRequest(), nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestWithdrawSuccess(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.store.enrollments = map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", StudentCareerID: "sc-1", SectionID: "sec-1", Active: true},
	}
	f.expectTx(true)

	enrollment, err := f.svc.Withdraw(context.Background(), "enr-1", adminActor())
	require.NoError(t, err)
	assert.False(t, enrollment.Active)
	assert.NotNil(t, enrollment.WithdrawnAt)
	assert.Equal(t, []string{"enr-1"}, f.store.withdrawn)
	assert.Equal(t, 1, f.sections.decremented)
	require.Len(t, f.auditor.logs, 1)
	assert.Equal(t, models.AuditActionWithdraw, f.auditor.logs[0].Action)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestWithdrawInactiveEnrollmentRejected(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.store.enrollments = map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", StudentCareerID: "sc-1", SectionID: "sec-1", Active: false},
	}
	f.expectTx(false)

	_, err := f.svc.Withdraw(context.Background(), "enr-1", nil)
	assert.Equal(t, appErrors.ErrEnrollmentInactive, err)
	assert.Zero(t, f.sections.decremented)
}

// Two withdrawals racing on the same enrollment can both read active=true
// before either holds the section lock. The loser finds the conditional
// update matching zero rows and must not release a second seat.
func TestWithdrawRaceLoserReleasesNoSeat(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.store.enrollments = map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", StudentCareerID: "sc-1", SectionID: "sec-1", Active: true},
	}
	f.store.withdrawRaced = true
	f.expectTx(false)

	_, err := f.svc.Withdraw(context.Background(), "enr-1", nil)
	assert.Equal(t, appErrors.ErrEnrollmentInactive, err)
	assert.Empty(t, f.store.withdrawn)
	assert.Zero(t, f.sections.decremented)
	assert.Empty(t, f.auditor.logs)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestWithdrawMissingEnrollment(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.expectTx(false)

	_, err := f.svc.Withdraw(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReconcileRepairsDriftedSections(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()
	f.sections.drift = []models.OccupancyDrift{
		{SectionID: "sec-1", Occupancy: 12, ActiveCount: 10},
		{SectionID: "sec-2", Occupancy: 3, ActiveCount: 4},
	}
	f.expectTx(true)
	f.expectTx(true)

	report, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 2, report.Repaired)
	assert.Equal(t, []string{"sec-1", "sec-2"}, f.sections.resets)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestReconcileNoDrift(t *testing.T) {
	f := newAdmissionFixture(t)
	defer f.cleanup()

	report, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Checked)
	assert.Zero(t, report.Repaired)
}
