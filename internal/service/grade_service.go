package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/academico-sys/siu-api/internal/models"
	appErrors "github.com/academico-sys/siu-api/pkg/errors"
)

type gradeRepository interface {
	List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, int, error)
	FindByID(ctx context.Context, id string) (*models.Grade, error)
	Create(ctx context.Context, grade *models.Grade) error
	Update(ctx context.Context, grade *models.Grade) error
	Delete(ctx context.Context, id string) error
}

type enrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

// RecordGradeRequest registers a mark against an enrollment.
type RecordGradeRequest struct {
	EnrollmentID string           `json:"enrollment_id" validate:"required"`
	Type         models.GradeType `json:"type" validate:"required,oneof=PARCIAL_1 PARCIAL_2 RECUPERATORIO FINAL TP OTRO"`
	Score        float64          `json:"score" validate:"min=0,max=10"`
	Notes        string           `json:"notes"`
	GradedAt     *time.Time       `json:"graded_at"`
}

// UpdateGradeRequest corrects an existing mark.
type UpdateGradeRequest struct {
	Score    float64    `json:"score" validate:"min=0,max=10"`
	Notes    string     `json:"notes"`
	GradedAt *time.Time `json:"graded_at"`
}

// GradeService manages partial and final marks.
type GradeService struct {
	repo        gradeRepository
	enrollments enrollmentReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService creates a new grade service.
func NewGradeService(repo gradeRepository, enrollments enrollmentReader, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{repo: repo, enrollments: enrollments, validator: validate, logger: logger}
}

// List returns paginated grades.
func (s *GradeService) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, *models.Pagination, error) {
	grades, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
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
	return grades, pagination, nil
}

// Get returns a grade by identifier.
func (s *GradeService) Get(ctx context.Context, id string) (*models.Grade, error) {
	grade, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	return grade, nil
}

// Record adds a mark to an active enrollment.
func (s *GradeService) Record(ctx context.Context, req RecordGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	enrollment, err := s.enrollments.FindByID(ctx, req.EnrollmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if !enrollment.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment is withdrawn")
	}

	grade := &models.Grade{
		EnrollmentID: req.EnrollmentID,
		Type:         req.Type,
		Score:        req.Score,
		Notes:        strings.TrimSpace(req.Notes),
	}
	if req.GradedAt != nil {
		grade.GradedAt = *req.GradedAt
	}
	if err := s.repo.Create(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}
	return grade, nil
}

// Update corrects an existing mark.
func (s *GradeService) Update(ctx context.Context, id string, req UpdateGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	grade, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	grade.Score = req.Score
	grade.Notes = strings.TrimSpace(req.Notes)
	if req.GradedAt != nil {
		grade.GradedAt = *req.GradedAt
	}
	if err := s.repo.Update(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
	}
	return grade, nil
}

// Delete removes a mark.
func (s *GradeService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade")
	}
	return nil
}
