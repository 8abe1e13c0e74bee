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

type sectionRepository interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.SectionDetail, error)
	ExistsByName(ctx context.Context, careerCourseID, termID, name, excludeID string) (bool, error)
	Create(ctx context.Context, section *models.Section) error
	Update(ctx context.Context, section *models.Section) error
}

type curriculumReader interface {
	FindByID(ctx context.Context, id string) (*models.CareerCourse, error)
}

type termReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type scheduleSlotStore interface {
	ListBySection(ctx context.Context, sectionID string) ([]models.ScheduleSlot, error)
	Create(ctx context.Context, slot *models.ScheduleSlot) error
	DeleteBySection(ctx context.Context, sectionID string) error
}

// ScheduleSlotRequest is one weekly meeting in a section payload.
type ScheduleSlotRequest struct {
	Weekday   int    `json:"weekday" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Room      string `json:"room"`
}

// CreateSectionRequest captures fields for opening a section.
type CreateSectionRequest struct {
	CareerCourseID string                `json:"career_course_id" validate:"required"`
	TermID         string                `json:"term_id" validate:"required"`
	Name           string                `json:"name" validate:"required"`
	MaxCapacity    int                   `json:"max_capacity" validate:"required,min=1"`
	TeacherID      *string               `json:"teacher_id"`
	Slots          []ScheduleSlotRequest `json:"slots" validate:"dive"`
}

// UpdateSectionRequest modifies section fields. Occupancy is not part of the
// payload; it only moves through admissions and withdrawals.
type UpdateSectionRequest struct {
	Name        string  `json:"name" validate:"required"`
	MaxCapacity int     `json:"max_capacity" validate:"required,min=1"`
	TeacherID   *string `json:"teacher_id"`
	Active      *bool   `json:"active"`
}

// SectionService handles section lifecycle and weekly schedules.
type SectionService struct {
	repo       sectionRepository
	curriculum curriculumReader
	terms      termReader
	teachers   teacherReader
	slots      scheduleSlotStore
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSectionService creates a new section service.
func NewSectionService(repo sectionRepository, curriculum curriculumReader, terms termReader, teachers teacherReader, slots scheduleSlotStore, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{repo: repo, curriculum: curriculum, terms: terms, teachers: teachers, slots: slots, validator: validate, logger: logger}
}

// List returns paginated sections with curriculum context.
func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error) {
	sections, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
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
	return sections, pagination, nil
}

// Get returns a section with curriculum context.
func (s *SectionService) Get(ctx context.Context, id string) (*models.SectionDetail, error) {
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return section, nil
}

// Schedule returns the weekly slots of a section.
func (s *SectionService) Schedule(ctx context.Context, id string) ([]models.ScheduleSlot, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	slots, err := s.slots.ListBySection(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list section schedule")
	}
	return slots, nil
}

// Create opens a new section for a curriculum link in a term.
func (s *SectionService) Create(ctx context.Context, req CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	if _, err := s.curriculum.FindByID(ctx, req.CareerCourseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curriculum link not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curriculum link")
	}
	if _, err := s.terms.FindByID(ctx, req.TermID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	if req.TeacherID != nil {
		if _, err := s.teachers.FindByID(ctx, *req.TeacherID); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
		}
	}

	name := strings.TrimSpace(req.Name)
	exists, err := s.repo.ExistsByName(ctx, req.CareerCourseID, req.TermID, name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate section name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "section name already used for this course and term")
	}

	section := &models.Section{
		CareerCourseID: req.CareerCourseID,
		TermID:         req.TermID,
		Name:           name,
		MaxCapacity:    req.MaxCapacity,
		Occupancy:      0,
		TeacherID:      req.TeacherID,
		Active:         true,
	}
	if err := s.repo.Create(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}

	for _, slot := range req.Slots {
		record := &models.ScheduleSlot{
			SectionID: section.ID,
			Weekday:   slot.Weekday,
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
			Room:      slot.Room,
		}
		if err := s.slots.Create(ctx, record); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule slot")
		}
	}
	return section, nil
}

// Update modifies an existing section. Lowering the capacity below current
// occupancy is rejected so seats already granted are never revoked.
func (s *SectionService) Update(ctx context.Context, id string, req UpdateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.MaxCapacity < detail.Occupancy {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "capacity cannot be lower than current occupancy")
	}
	if req.TeacherID != nil {
		if _, err := s.teachers.FindByID(ctx, *req.TeacherID); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
		}
	}

	name := strings.TrimSpace(req.Name)
	exists, err := s.repo.ExistsByName(ctx, detail.CareerCourseID, detail.TermID, name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate section name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "section name already used for this course and term")
	}

	section := detail.Section
	section.Name = name
	section.MaxCapacity = req.MaxCapacity
	section.TeacherID = req.TeacherID
	if req.Active != nil {
		section.Active = *req.Active
	}
	if err := s.repo.Update(ctx, &section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section")
	}
	return &section, nil
}

// ReplaceSchedule swaps the weekly slots of a section in one call.
func (s *SectionService) ReplaceSchedule(ctx context.Context, id string, slots []ScheduleSlotRequest) ([]models.ScheduleSlot, error) {
	for _, slot := range slots {
		if err := s.validator.Struct(slot); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule slot payload")
		}
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.slots.DeleteBySection(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear section schedule")
	}
	created := make([]models.ScheduleSlot, 0, len(slots))
	for _, slot := range slots {
		record := &models.ScheduleSlot{
			SectionID: id,
			Weekday:   slot.Weekday,
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
			Room:      slot.Room,
		}
		if err := s.slots.Create(ctx, record); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule slot")
		}
		created = append(created, *record)
	}
	return created, nil
}
