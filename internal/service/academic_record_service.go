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

type approvedCourseRepository interface {
	List(ctx context.Context, filter models.ApprovedCourseFilter) ([]models.ApprovedCourseDetail, int, error)
	Exists(ctx context.Context, studentCareerID, courseID string) (bool, error)
	Create(ctx context.Context, record *models.ApprovedCourse) error
	Delete(ctx context.Context, id string) error
}

// RecordApprovalRequest registers a passed course for a student career.
type RecordApprovalRequest struct {
	StudentCareerID string                   `json:"student_career_id" validate:"required"`
	CourseID        string                   `json:"course_id" validate:"required"`
	Grade           int                      `json:"grade" validate:"required,min=4,max=10"`
	Condition       models.ApprovalCondition `json:"condition" validate:"required,oneof=REGULAR PROMOCIONADO EQUIVALENCIA"`
	ActNumber       string                   `json:"act_number"`
	ApprovedAt      *time.Time               `json:"approved_at"`
}

// AcademicRecordService manages approved courses, the input of the
// prerequisite check.
type AcademicRecordService struct {
	repo      approvedCourseRepository
	careers   membershipReader
	courses   courseReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAcademicRecordService creates a new academic record service.
func NewAcademicRecordService(repo approvedCourseRepository, careers membershipReader, courses courseReader, validate *validator.Validate, logger *zap.Logger) *AcademicRecordService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicRecordService{repo: repo, careers: careers, courses: courses, validator: validate, logger: logger}
}

// List returns paginated approved courses.
func (s *AcademicRecordService) List(ctx context.Context, filter models.ApprovedCourseFilter) ([]models.ApprovedCourseDetail, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list approved courses")
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
	return records, pagination, nil
}

// RecordApproval registers a course approval, unique per student career and
// course.
func (s *AcademicRecordService) RecordApproval(ctx context.Context, req RecordApprovalRequest) (*models.ApprovedCourse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}
	if _, err := s.careers.FindDetailByID(ctx, req.StudentCareerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student career not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student career")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	exists, err := s.repo.Exists(ctx, req.StudentCareerID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing approval")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course already approved for this student career")
	}

	approvedAt := time.Now().UTC()
	if req.ApprovedAt != nil {
		approvedAt = *req.ApprovedAt
	}
	record := &models.ApprovedCourse{
		StudentCareerID: req.StudentCareerID,
		CourseID:        req.CourseID,
		ApprovedAt:      approvedAt,
		Grade:           req.Grade,
		Condition:       req.Condition,
		ActNumber:       strings.TrimSpace(req.ActNumber),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record approval")
	}
	return record, nil
}

// RevokeApproval removes an approval record, e.g. after an administrative
// correction.
func (s *AcademicRecordService) RevokeApproval(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "approval not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke approval")
	}
	return nil
}
