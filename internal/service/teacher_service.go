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

type teacherProfileRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
}

// CreateTeacherRequest links a user account to a teacher profile.
type CreateTeacherRequest struct {
	UserID     string     `json:"user_id" validate:"required"`
	FileNumber *string    `json:"file_number"`
	Title      string     `json:"title"`
	EntryDate  *time.Time `json:"entry_date"`
}

// UpdateTeacherRequest modifies a teacher profile.
type UpdateTeacherRequest struct {
	FileNumber *string    `json:"file_number"`
	Title      string     `json:"title"`
	Active     *bool      `json:"active"`
	ExitDate   *time.Time `json:"exit_date"`
}

// TeacherService handles teacher profile workflows.
type TeacherService struct {
	repo      teacherProfileRepository
	users     userReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService creates a new teacher service.
func NewTeacherService(repo teacherProfileRepository, users userReader, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, users: users, validator: validate, logger: logger}
}

// List returns paginated teachers.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
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
	return teachers, pagination, nil
}

// Get returns a teacher by identifier.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// Create opens a teacher profile for an existing user account.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user role must be PROFESOR")
	}
	if _, err := s.repo.FindByUserID(ctx, req.UserID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user already has a teacher profile")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher profile")
	}

	entryDate := time.Now().UTC()
	if req.EntryDate != nil {
		entryDate = *req.EntryDate
	}
	teacher := &models.Teacher{
		UserID:     req.UserID,
		FileNumber: req.FileNumber,
		Title:      strings.TrimSpace(req.Title),
		Active:     true,
		EntryDate:  entryDate,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	return teacher, nil
}

// Update modifies a teacher profile.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	teacher.FileNumber = req.FileNumber
	teacher.Title = strings.TrimSpace(req.Title)
	if req.Active != nil {
		teacher.Active = *req.Active
	}
	teacher.ExitDate = req.ExitDate
	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return teacher, nil
}
