package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/academico-sys/siu-api/internal/models"
	appErrors "github.com/academico-sys/siu-api/pkg/errors"
)

type studentCareerRepository interface {
	List(ctx context.Context, filter models.StudentCareerFilter) ([]models.StudentCareerDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentCareer, error)
	FindDetailByID(ctx context.Context, id string) (*models.StudentCareerDetail, error)
	ExistsActiveByStudent(ctx context.Context, studentID string) (bool, error)
	Create(ctx context.Context, membership *models.StudentCareer) error
	SetActive(ctx context.Context, id string, active bool) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// CreateStudentCareerRequest registers a student into a career.
type CreateStudentCareerRequest struct {
	StudentID string     `json:"student_id" validate:"required"`
	CareerID  string     `json:"career_id" validate:"required"`
	StartDate *time.Time `json:"start_date"`
}

// StudentCareerService manages career memberships. A student holds at most
// one active membership at a time.
type StudentCareerService struct {
	repo      studentCareerRepository
	students  studentReader
	careers   careerReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentCareerService creates a new student career service.
func NewStudentCareerService(repo studentCareerRepository, students studentReader, careers careerReader, validate *validator.Validate, logger *zap.Logger) *StudentCareerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentCareerService{repo: repo, students: students, careers: careers, validator: validate, logger: logger}
}

// List returns paginated career memberships.
func (s *StudentCareerService) List(ctx context.Context, filter models.StudentCareerFilter) ([]models.StudentCareerDetail, *models.Pagination, error) {
	memberships, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student careers")
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
	return memberships, pagination, nil
}

// Get returns a membership with student and career context.
func (s *StudentCareerService) Get(ctx context.Context, id string) (*models.StudentCareerDetail, error) {
	membership, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student career not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student career")
	}
	return membership, nil
}

// Create registers a student into a career.
func (s *StudentCareerService) Create(ctx context.Context, req CreateStudentCareerRequest) (*models.StudentCareer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student career payload")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student is inactive")
	}
	career, err := s.careers.FindByID(ctx, req.CareerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "career not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load career")
	}
	if !career.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "career is inactive")
	}

	hasActive, err := s.repo.ExistsActiveByStudent(ctx, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active membership")
	}
	if hasActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an active career")
	}

	startDate := time.Now().UTC()
	if req.StartDate != nil {
		startDate = *req.StartDate
	}
	membership := &models.StudentCareer{
		StudentID: req.StudentID,
		CareerID:  req.CareerID,
		Active:    true,
		StartDate: startDate,
	}
	if err := s.repo.Create(ctx, membership); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student career")
	}
	return membership, nil
}

// Deactivate closes a membership, stamping the end date.
func (s *StudentCareerService) Deactivate(ctx context.Context, id string) error {
	membership, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student career not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student career")
	}
	if !membership.Active {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "student career already inactive")
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student career")
	}
	return nil
}

// Reactivate reopens a membership, provided the student has no other active
// one.
func (s *StudentCareerService) Reactivate(ctx context.Context, id string) error {
	membership, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student career not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student career")
	}
	if membership.Active {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "student career already active")
	}
	hasActive, err := s.repo.ExistsActiveByStudent(ctx, membership.StudentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active membership")
	}
	if hasActive {
		return appErrors.Clone(appErrors.ErrConflict, "student already has an active career")
	}
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reactivate student career")
	}
	return nil
}
