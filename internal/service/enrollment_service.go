package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/academico-sys/siu-api/internal/models"
	appErrors "github.com/academico-sys/siu-api/pkg/errors"
)

// Postgres error codes handled by the admission protocol.
const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"
	pqLockNotAvail    = "55P03"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type sectionLocker interface {
	FindByID(ctx context.Context, id string) (*models.SectionDetail, error)
	FindByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.SectionDetail, error)
	IncrementOccupancy(ctx context.Context, tx *sqlx.Tx, id string) error
	DecrementOccupancy(ctx context.Context, tx *sqlx.Tx, id string) error
	ListOccupancyDrift(ctx context.Context) ([]models.OccupancyDrift, error)
	ResetOccupancy(ctx context.Context, tx *sqlx.Tx, id string) error
}

type enrollmentStore interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByIDTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Enrollment, error)
	ExistsActiveBySection(ctx context.Context, tx *sqlx.Tx, studentCareerID, sectionID string) (bool, error)
	ExistsActiveByCourseTerm(ctx context.Context, tx *sqlx.Tx, studentCareerID, courseID, termID string) (bool, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error
	WithdrawTx(ctx context.Context, tx *sqlx.Tx, id string, withdrawnAt time.Time) (bool, error)
}

type studentCareerReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentCareer, error)
}

type admissionChecker interface {
	Check(ctx context.Context, studentCareerID string, section *models.SectionDetail) error
}

type enrollmentAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AdmissionRecorder receives the outcome of each admission attempt, keyed by
// the rejection code or "ADMITTED".
type AdmissionRecorder interface {
	RecordAdmission(outcome string)
}

// EnrollRequest describes an admission request.
type EnrollRequest struct {
	StudentCareerID string `json:"student_career_id" validate:"required"`
	SectionID       string `json:"section_id" validate:"required"`
}

// ReconcileReport summarises one reconciliation run.
type ReconcileReport struct {
	Checked  int                     `json:"checked"`
	Repaired int                     `json:"repaired"`
	Drift    []models.OccupancyDrift `json:"drift"`
}

// EnrollmentService implements the admission protocol. Every admission and
// withdrawal runs inside a transaction holding an exclusive lock on the
// section row, so the occupancy counter and the enrollment rows always move
// together.
type EnrollmentService struct {
	tx             txProvider
	sections       sectionLocker
	enrollments    enrollmentStore
	studentCareers studentCareerReader
	students       studentReader
	checker        admissionChecker
	audit          enrollmentAuditor
	recorder       AdmissionRecorder
	lockTimeout    time.Duration
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(
	tx txProvider,
	sections sectionLocker,
	enrollments enrollmentStore,
	studentCareers studentCareerReader,
	students studentReader,
	checker admissionChecker,
	audit enrollmentAuditor,
	lockTimeout time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &EnrollmentService{
		tx:             tx,
		sections:       sections,
		enrollments:    enrollments,
		studentCareers: studentCareers,
		students:       students,
		checker:        checker,
		audit:          audit,
		lockTimeout:    lockTimeout,
		validator:      validate,
		logger:         logger,
	}
}

// WithRecorder attaches an admission outcome recorder.
func (s *EnrollmentService) WithRecorder(recorder AdmissionRecorder) *EnrollmentService {
	s.recorder = recorder
	return s
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// Get returns one enrollment.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

// Admit runs the admission protocol for one student career and section.
// Preconditions are evaluated in a fixed order under the section row lock;
// the first violated one aborts the transaction with its rejection. Callers
// with the student role may only enroll their own career membership.
func (s *EnrollmentService) Admit(ctx context.Context, req EnrollRequest, actor *models.JWTClaims) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if err := s.authorizeActor(ctx, actor, req.StudentCareerID); err != nil {
		return nil, err
	}

	enrollment, err := s.admit(ctx, req)
	s.record(err)
	if err != nil {
		return nil, err
	}

	s.writeAudit(ctx, actorUserID(actor), models.AuditActionEnroll, enrollment.ID)
	s.logger.Info("student admitted",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_career_id", req.StudentCareerID),
		zap.String("section_id", req.SectionID))
	return enrollment, nil
}

func (s *EnrollmentService) admit(ctx context.Context, req EnrollRequest) (*models.Enrollment, error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin admission transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.applyLockTimeout(ctx, tx); err != nil {
		return nil, err
	}

	section, err := s.sections.FindByIDForUpdate(ctx, tx, req.SectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		if rej := reclassifyPQ(err); rej != nil {
			return nil, rej
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock section")
	}

	studentCareer, err := s.studentCareers.FindByID(ctx, req.StudentCareerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student career not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student career")
	}
	if !studentCareer.Active {
		return nil, appErrors.ErrInactiveCareer
	}
	if !section.Active {
		return nil, appErrors.ErrInactiveSection
	}
	if section.CareerID != studentCareer.CareerID {
		return nil, appErrors.ErrWrongCareer
	}
	if !section.HasCapacity() {
		return nil, appErrors.ErrNoCapacity
	}

	enrolledHere, err := s.enrollments.ExistsActiveBySection(ctx, tx, req.StudentCareerID, req.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check section enrollment")
	}
	if enrolledHere {
		return nil, appErrors.ErrAlreadyEnrolledSection
	}

	enrolledCourse, err := s.enrollments.ExistsActiveByCourseTerm(ctx, tx, req.StudentCareerID, section.CourseID, section.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course enrollment")
	}
	if enrolledCourse {
		return nil, appErrors.ErrAlreadyEnrolledCourseTerm
	}

	if err := s.checker.Check(ctx, req.StudentCareerID, section); err != nil {
		return nil, err
	}

	enrollment := &models.Enrollment{
		StudentCareerID: req.StudentCareerID,
		SectionID:       req.SectionID,
		CourseID:        section.CourseID,
		TermID:          section.TermID,
		Active:          true,
		EnrolledAt:      time.Now().UTC(),
	}
	if err := s.enrollments.CreateTx(ctx, tx, enrollment); err != nil {
		if rej := reclassifyPQ(err); rej != nil {
			return nil, rej
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	if err := s.sections.IncrementOccupancy(ctx, tx, req.SectionID); err != nil {
		if rej := reclassifyPQ(err); rej != nil {
			return nil, rej
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update occupancy")
	}

	if err := tx.Commit(); err != nil {
		if rej := reclassifyPQ(err); rej != nil {
			return nil, rej
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit admission")
	}
	return enrollment, nil
}

// Withdraw deactivates an enrollment and releases its seat. Withdrawing an
// already inactive enrollment is rejected rather than silently accepted.
// Callers with the student role may only withdraw their own enrollments.
func (s *EnrollmentService) Withdraw(ctx context.Context, id string, actor *models.JWTClaims) (*models.Enrollment, error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin withdrawal transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.applyLockTimeout(ctx, tx); err != nil {
		return nil, err
	}

	enrollment, err := s.enrollments.FindByIDTx(ctx, tx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if !enrollment.Active {
		return nil, appErrors.ErrEnrollmentInactive
	}
	if err := s.authorizeActor(ctx, actor, enrollment.StudentCareerID); err != nil {
		return nil, err
	}

	if _, err := s.sections.FindByIDForUpdate(ctx, tx, enrollment.SectionID); err != nil {
		if rej := reclassifyPQ(err); rej != nil {
			return nil, rej
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock section")
	}

	// The conditional update is the authoritative check: a concurrent
	// withdrawal that committed while we waited on the section lock leaves
	// zero rows to flip, and the seat it released must not be released twice.
	withdrawnAt := time.Now().UTC()
	withdrawn, err := s.enrollments.WithdrawTx(ctx, tx, id, withdrawnAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw enrollment")
	}
	if !withdrawn {
		return nil, appErrors.ErrEnrollmentInactive
	}
	if err := s.sections.DecrementOccupancy(ctx, tx, enrollment.SectionID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update occupancy")
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit withdrawal")
	}

	enrollment.Active = false
	enrollment.WithdrawnAt = &withdrawnAt

	s.writeAudit(ctx, actorUserID(actor), models.AuditActionWithdraw, enrollment.ID)
	s.logger.Info("student withdrawn",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("section_id", enrollment.SectionID))
	return enrollment, nil
}

// Reconcile compares every section's occupancy counter against its active
// enrollment count and rewrites the counters that drifted. Each repair takes
// the same section lock the admission path uses.
func (s *EnrollmentService) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	drift, err := s.sections.ListOccupancyDrift(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute occupancy drift")
	}

	report := &ReconcileReport{Checked: len(drift), Drift: drift}
	for _, d := range drift {
		if err := s.repairSection(ctx, d.SectionID); err != nil {
			s.logger.Warn("occupancy repair failed",
				zap.String("section_id", d.SectionID),
				zap.Error(err))
			continue
		}
		report.Repaired++
	}

	if report.Checked > 0 {
		s.logger.Info("occupancy reconciliation finished",
			zap.Int("checked", report.Checked),
			zap.Int("repaired", report.Repaired))
	}
	return report, nil
}

func (s *EnrollmentService) repairSection(ctx context.Context, sectionID string) error {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin repair tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.applyLockTimeout(ctx, tx); err != nil {
		return err
	}
	if _, err := s.sections.FindByIDForUpdate(ctx, tx, sectionID); err != nil {
		return fmt.Errorf("lock section: %w", err)
	}
	if err := s.sections.ResetOccupancy(ctx, tx, sectionID); err != nil {
		return err
	}
	return tx.Commit()
}

// authorizeActor lets staff act on any membership; a student caller must own
// the target one, resolved through its student's user account.
func (s *EnrollmentService) authorizeActor(ctx context.Context, actor *models.JWTClaims, studentCareerID string) error {
	if actor == nil || actor.Role != models.RoleStudent {
		return nil
	}
	membership, err := s.studentCareers.FindByID(ctx, studentCareerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student career not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student career")
	}
	student, err := s.students.FindByID(ctx, membership.StudentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.UserID != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student")
	}
	return nil
}

func actorUserID(actor *models.JWTClaims) string {
	if actor == nil {
		return ""
	}
	return actor.UserID
}

// applyLockTimeout bounds how long this transaction waits for the section
// row lock. lock_timeout does not accept bind parameters.
func (s *EnrollmentService) applyLockTimeout(ctx context.Context, tx *sqlx.Tx) error {
	stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set lock timeout")
	}
	return nil
}

func (s *EnrollmentService) record(err error) {
	if s.recorder == nil {
		return
	}
	if err == nil {
		s.recorder.RecordAdmission("ADMITTED")
		return
	}
	s.recorder.RecordAdmission(appErrors.FromError(err).Code)
}

func (s *EnrollmentService) writeAudit(ctx context.Context, actorID, action, resourceID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{Action: action, Resource: "enrollment", ResourceID: &resourceID}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("audit log write failed", zap.Error(err))
	}
}

// reclassifyPQ maps storage-level failures raced past the precondition
// checks back to their admission rejections: unique violations to duplicate
// enrollment, the capacity check constraint to a full section, and a lock
// wait timeout to a busy section.
func reclassifyPQ(err error) *appErrors.Error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}
	switch string(pqErr.Code) {
	case pqUniqueViolation:
		if pqErr.Constraint == "enrollments_active_course_term_key" {
			return appErrors.ErrAlreadyEnrolledCourseTerm
		}
		return appErrors.ErrAlreadyEnrolledSection
	case pqCheckViolation:
		return appErrors.ErrNoCapacity
	case pqLockNotAvail:
		return appErrors.ErrSectionBusy
	default:
		return nil
	}
}
