package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/academico-sys/siu-api/internal/models"
	appErrors "github.com/academico-sys/siu-api/pkg/errors"
)

type instituteRepository interface {
	List(ctx context.Context, filter models.InstituteFilter) ([]models.Institute, int, error)
	FindByID(ctx context.Context, id string) (*models.Institute, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, institute *models.Institute) error
	Update(ctx context.Context, institute *models.Institute) error
	Delete(ctx context.Context, id string) error
}

// CreateInstituteRequest captures fields for creating institutes.
type CreateInstituteRequest struct {
	Code        string `json:"code" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// UpdateInstituteRequest modifies institute fields.
type UpdateInstituteRequest struct {
	Code        string `json:"code" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

// InstituteService handles institute workflows.
type InstituteService struct {
	repo      instituteRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInstituteService creates a new institute service.
func NewInstituteService(repo instituteRepository, validate *validator.Validate, logger *zap.Logger) *InstituteService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstituteService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated institutes.
func (s *InstituteService) List(ctx context.Context, filter models.InstituteFilter) ([]models.Institute, *models.Pagination, error) {
	institutes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list institutes")
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
	return institutes, pagination, nil
}

// Get returns an institute by identifier.
func (s *InstituteService) Get(ctx context.Context, id string) (*models.Institute, error) {
	institute, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "institute not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institute")
	}
	return institute, nil
}

// Create adds a new institute ensuring code uniqueness.
func (s *InstituteService) Create(ctx context.Context, req CreateInstituteRequest) (*models.Institute, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid institute payload")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	exists, err := s.repo.ExistsByCode(ctx, code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate institute code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "institute code already in use")
	}
	institute := &models.Institute{
		Code:        code,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Active:      true,
	}
	if err := s.repo.Create(ctx, institute); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create institute")
	}
	return institute, nil
}

// Update modifies an existing institute.
func (s *InstituteService) Update(ctx context.Context, id string, req UpdateInstituteRequest) (*models.Institute, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid institute payload")
	}
	institute, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	exists, err := s.repo.ExistsByCode(ctx, code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate institute code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "institute code already in use")
	}
	institute.Code = code
	institute.Name = strings.TrimSpace(req.Name)
	institute.Description = strings.TrimSpace(req.Description)
	if req.Active != nil {
		institute.Active = *req.Active
	}
	if err := s.repo.Update(ctx, institute); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update institute")
	}
	return institute, nil
}

// Delete removes an institute.
func (s *InstituteService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "institute not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete institute")
	}
	return nil
}
