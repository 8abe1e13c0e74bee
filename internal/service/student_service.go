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

type studentProfileRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	ExistsByFileNumber(ctx context.Context, fileNumber, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CreateStudentRequest links a user account to a student profile.
type CreateStudentRequest struct {
	UserID     string     `json:"user_id" validate:"required"`
	FileNumber string     `json:"file_number" validate:"required"`
	EntryDate  *time.Time `json:"entry_date"`
}

// UpdateStudentRequest modifies a student profile.
type UpdateStudentRequest struct {
	FileNumber string     `json:"file_number" validate:"required"`
	Active     *bool      `json:"active"`
	ExitDate   *time.Time `json:"exit_date"`
}

// StudentService handles student profile workflows.
type StudentService struct {
	repo      studentProfileRepository
	users     userReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService creates a new student service.
func NewStudentService(repo studentProfileRepository, users userReader, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, users: users, validator: validate, logger: logger}
}

// List returns paginated students.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
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
	return students, pagination, nil
}

// Get returns a student with user context.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create opens a student profile for an existing user account.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user role must be ESTUDIANTE")
	}
	if _, err := s.repo.FindByUserID(ctx, req.UserID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user already has a student profile")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student profile")
	}

	fileNumber := strings.TrimSpace(req.FileNumber)
	exists, err := s.repo.ExistsByFileNumber(ctx, fileNumber, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate file number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "file number already in use")
	}

	entryDate := time.Now().UTC()
	if req.EntryDate != nil {
		entryDate = *req.EntryDate
	}
	student := &models.Student{
		UserID:     req.UserID,
		FileNumber: fileNumber,
		Active:     true,
		EntryDate:  entryDate,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update modifies a student profile.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	fileNumber := strings.TrimSpace(req.FileNumber)
	exists, err := s.repo.ExistsByFileNumber(ctx, fileNumber, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate file number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "file number already in use")
	}
	student.FileNumber = fileNumber
	if req.Active != nil {
		student.Active = *req.Active
	}
	student.ExitDate = req.ExitDate
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}
