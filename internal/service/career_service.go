package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/academico-sys/siu-api/internal/models"
	appErrors "github.com/academico-sys/siu-api/pkg/errors"
)

const careerCachePrefix = "catalog:careers"

type careerRepository interface {
	List(ctx context.Context, filter models.CareerFilter) ([]models.CareerDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Career, error)
	FindDetailByID(ctx context.Context, id string) (*models.CareerDetail, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, career *models.Career) error
	Update(ctx context.Context, career *models.Career) error
	Delete(ctx context.Context, id string) error
}

type instituteReader interface {
	FindByID(ctx context.Context, id string) (*models.Institute, error)
}

// CreateCareerRequest captures fields for creating careers.
type CreateCareerRequest struct {
	InstituteID   string                `json:"institute_id" validate:"required"`
	Code          string                `json:"code" validate:"required"`
	Name          string                `json:"name" validate:"required"`
	Description   string                `json:"description"`
	DurationYears int                   `json:"duration_years" validate:"required,min=1,max=10"`
	Modality      models.CareerModality `json:"modality" validate:"required,oneof=PRESENCIAL VIRTUAL MIXTA"`
}

// UpdateCareerRequest modifies career fields.
type UpdateCareerRequest struct {
	Code          string                `json:"code" validate:"required"`
	Name          string                `json:"name" validate:"required"`
	Description   string                `json:"description"`
	DurationYears int                   `json:"duration_years" validate:"required,min=1,max=10"`
	Modality      models.CareerModality `json:"modality" validate:"required,oneof=PRESENCIAL VIRTUAL MIXTA"`
	Active        *bool                 `json:"active"`
}

type careerListPayload struct {
	Careers    []models.CareerDetail `json:"careers"`
	Pagination *models.Pagination    `json:"pagination"`
}

// CareerService handles career workflows. Listings are served through the
// cache; every write invalidates the career key space.
type CareerService struct {
	repo       careerRepository
	institutes instituteReader
	cache      *CacheService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewCareerService creates a new career service.
func NewCareerService(repo careerRepository, institutes instituteReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CareerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CareerService{repo: repo, institutes: institutes, cache: cache, validator: validate, logger: logger}
}

// List returns paginated careers, served from cache when possible.
func (s *CareerService) List(ctx context.Context, filter models.CareerFilter) ([]models.CareerDetail, *models.Pagination, bool, error) {
	key := careerListCacheKey(filter)
	if s.cache.Enabled() {
		var cached careerListPayload
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached.Careers, cached.Pagination, true, nil
		}
	}

	careers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list careers")
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

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, key, careerListPayload{Careers: careers, Pagination: pagination}, 0)
	}
	return careers, pagination, false, nil
}

// Get returns a career with institute context.
func (s *CareerService) Get(ctx context.Context, id string) (*models.CareerDetail, error) {
	career, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "career not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load career")
	}
	return career, nil
}

// Create adds a new career under an existing institute.
func (s *CareerService) Create(ctx context.Context, req CreateCareerRequest) (*models.Career, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid career payload")
	}
	if _, err := s.institutes.FindByID(ctx, req.InstituteID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "institute not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institute")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	exists, err := s.repo.ExistsByCode(ctx, code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate career code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "career code already in use")
	}
	career := &models.Career{
		InstituteID:   req.InstituteID,
		Code:          code,
		Name:          strings.TrimSpace(req.Name),
		Description:   strings.TrimSpace(req.Description),
		DurationYears: req.DurationYears,
		Modality:      req.Modality,
		Active:        true,
	}
	if err := s.repo.Create(ctx, career); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create career")
	}
	s.invalidate(ctx)
	return career, nil
}

// Update modifies an existing career.
func (s *CareerService) Update(ctx context.Context, id string, req UpdateCareerRequest) (*models.Career, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid career payload")
	}
	career, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "career not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load career")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	exists, err := s.repo.ExistsByCode(ctx, code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate career code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "career code already in use")
	}
	career.Code = code
	career.Name = strings.TrimSpace(req.Name)
	career.Description = strings.TrimSpace(req.Description)
	career.DurationYears = req.DurationYears
	career.Modality = req.Modality
	if req.Active != nil {
		career.Active = *req.Active
	}
	if err := s.repo.Update(ctx, career); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update career")
	}
	s.invalidate(ctx)
	return career, nil
}

// Delete removes a career.
func (s *CareerService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "career not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete career")
	}
	s.invalidate(ctx)
	return nil
}

func (s *CareerService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, careerCachePrefix+":*"); err != nil {
		s.logger.Warn("career cache invalidation failed", zap.Error(err))
	}
}

func careerListCacheKey(filter models.CareerFilter) string {
	active := "any"
	if filter.Active != nil {
		active = fmt.Sprintf("%t", *filter.Active)
	}
	return fmt.Sprintf("%s:%s:%s:%s:%s:%d:%d:%s:%s",
		careerCachePrefix, filter.InstituteID, filter.Modality, filter.Search, active,
		filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)
}
