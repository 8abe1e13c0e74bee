package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/academico-sys/siu-api/internal/models"
	appErrors "github.com/academico-sys/siu-api/pkg/errors"
)

type careerCourseRepository interface {
	List(ctx context.Context, filter models.CareerCourseFilter) ([]models.CareerCourseDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.CareerCourse, error)
	ExistsByCareerAndCourse(ctx context.Context, careerID, courseID string) (bool, error)
	Create(ctx context.Context, link *models.CareerCourse) error
	Update(ctx context.Context, link *models.CareerCourse) error
	Delete(ctx context.Context, id string) error
	AddPrerequisite(ctx context.Context, careerCourseID, requiresID string) error
	RemovePrerequisite(ctx context.Context, careerCourseID, requiresID string) error
	ListPrerequisites(ctx context.Context, careerCourseID string) ([]models.PrerequisiteDetail, error)
}

type careerReader interface {
	FindByID(ctx context.Context, id string) (*models.Career, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// CreateCareerCourseRequest links a course into a career's curriculum.
type CreateCareerCourseRequest struct {
	CareerID  string `json:"career_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
	Year      int    `json:"year" validate:"required,min=1,max=10"`
	TermSlot  *int   `json:"term_slot" validate:"omitempty,min=1,max=2"`
	Mandatory bool   `json:"mandatory"`
}

// UpdateCareerCourseRequest modifies a curriculum link's position.
type UpdateCareerCourseRequest struct {
	Year      int  `json:"year" validate:"required,min=1,max=10"`
	TermSlot  *int `json:"term_slot" validate:"omitempty,min=1,max=2"`
	Mandatory bool `json:"mandatory"`
}

// AddPrerequisiteRequest declares that a curriculum link requires another.
type AddPrerequisiteRequest struct {
	RequiresID string `json:"requires_id" validate:"required"`
}

// CareerCourseService manages curricula and their prerequisite graphs.
type CareerCourseService struct {
	repo      careerCourseRepository
	careers   careerReader
	courses   courseReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCareerCourseService creates a new curriculum service.
func NewCareerCourseService(repo careerCourseRepository, careers careerReader, courses courseReader, validate *validator.Validate, logger *zap.Logger) *CareerCourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CareerCourseService{repo: repo, careers: careers, courses: courses, validator: validate, logger: logger}
}

// List returns paginated curriculum links.
func (s *CareerCourseService) List(ctx context.Context, filter models.CareerCourseFilter) ([]models.CareerCourseDetail, *models.Pagination, error) {
	links, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list curriculum")
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
	return links, pagination, nil
}

// Get returns a curriculum link.
func (s *CareerCourseService) Get(ctx context.Context, id string) (*models.CareerCourse, error) {
	link, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curriculum link not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curriculum link")
	}
	return link, nil
}

// Create links a course into a career's curriculum.
func (s *CareerCourseService) Create(ctx context.Context, req CreateCareerCourseRequest) (*models.CareerCourse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid curriculum payload")
	}
	if _, err := s.careers.FindByID(ctx, req.CareerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "career not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load career")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	exists, err := s.repo.ExistsByCareerAndCourse(ctx, req.CareerID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate curriculum uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course already in career curriculum")
	}
	link := &models.CareerCourse{
		CareerID:  req.CareerID,
		CourseID:  req.CourseID,
		Year:      req.Year,
		TermSlot:  req.TermSlot,
		Mandatory: req.Mandatory,
	}
	if err := s.repo.Create(ctx, link); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create curriculum link")
	}
	return link, nil
}

// Update modifies the position of a curriculum link.
func (s *CareerCourseService) Update(ctx context.Context, id string, req UpdateCareerCourseRequest) (*models.CareerCourse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid curriculum payload")
	}
	link, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	link.Year = req.Year
	link.TermSlot = req.TermSlot
	link.Mandatory = req.Mandatory
	if err := s.repo.Update(ctx, link); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update curriculum link")
	}
	return link, nil
}

// Delete removes a curriculum link and every prerequisite edge touching it.
func (s *CareerCourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete curriculum link")
	}
	return nil
}

// AddPrerequisite declares that one curriculum link requires another. Both
// links must belong to the same career and a link cannot require itself;
// these rules are enforced here, on write, so the admission-time check can
// trust every stored edge.
func (s *CareerCourseService) AddPrerequisite(ctx context.Context, careerCourseID string, req AddPrerequisiteRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid prerequisite payload")
	}
	if careerCourseID == req.RequiresID {
		return appErrors.Clone(appErrors.ErrValidation, "a course cannot require itself")
	}
	link, err := s.Get(ctx, careerCourseID)
	if err != nil {
		return err
	}
	required, err := s.Get(ctx, req.RequiresID)
	if err != nil {
		return err
	}
	if link.CareerID != required.CareerID {
		return appErrors.Clone(appErrors.ErrValidation, "prerequisite must belong to the same career")
	}

	existing, err := s.repo.ListPrerequisites(ctx, careerCourseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisites")
	}
	for _, p := range existing {
		if p.RequiresID == req.RequiresID {
			return appErrors.Clone(appErrors.ErrConflict, "prerequisite already declared")
		}
	}

	if err := s.repo.AddPrerequisite(ctx, careerCourseID, req.RequiresID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add prerequisite")
	}
	return nil
}

// RemovePrerequisite deletes a prerequisite edge.
func (s *CareerCourseService) RemovePrerequisite(ctx context.Context, careerCourseID, requiresID string) error {
	if _, err := s.Get(ctx, careerCourseID); err != nil {
		return err
	}
	if err := s.repo.RemovePrerequisite(ctx, careerCourseID, requiresID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove prerequisite")
	}
	return nil
}

// ListPrerequisites returns the prerequisite edges of a curriculum link.
func (s *CareerCourseService) ListPrerequisites(ctx context.Context, careerCourseID string) ([]models.PrerequisiteDetail, error) {
	if _, err := s.Get(ctx, careerCourseID); err != nil {
		return nil, err
	}
	prerequisites, err := s.repo.ListPrerequisites(ctx, careerCourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list prerequisites")
	}
	return prerequisites, nil
}
