package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academico-sys/siu-api/internal/models"
	appErrors "github.com/academico-sys/siu-api/pkg/errors"
)

type stubSectionRepo struct {
	details    map[string]models.SectionDetail
	usedNames  map[string]bool
	created    *models.Section
	updated    *models.Section
	excludeIDs []string
}

func (m *stubSectionRepo) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error) {
	return nil, 0, nil
}

func (m *stubSectionRepo) FindByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	if detail, ok := m.details[id]; ok {
		return &detail, nil
	}
	return nil, sql.ErrNoRows
}

func (m *stubSectionRepo) ExistsByName(ctx context.Context, careerCourseID, termID, name, excludeID string) (bool, error) {
	m.excludeIDs = append(m.excludeIDs, excludeID)
	return m.usedNames[name], nil
}

func (m *stubSectionRepo) Create(ctx context.Context, section *models.Section) error {
	section.ID = "sec-new"
	m.created = section
	return nil
}

func (m *stubSectionRepo) Update(ctx context.Context, section *models.Section) error {
	m.updated = section
	return nil
}

type stubCurriculumReader struct {
	links map[string]*models.CareerCourse
}

func (m *stubCurriculumReader) FindByID(ctx context.Context, id string) (*models.CareerCourse, error) {
	if link, ok := m.links[id]; ok {
		return link, nil
	}
	return nil, sql.ErrNoRows
}

type stubTermReader struct {
	terms map[string]*models.Term
}

func (m *stubTermReader) FindByID(ctx context.Context, id string) (*models.Term, error) {
	if term, ok := m.terms[id]; ok {
		return term, nil
	}
	return nil, sql.ErrNoRows
}

type stubTeacherReader struct {
	teachers map[string]*models.Teacher
}

func (m *stubTeacherReader) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := m.teachers[id]; ok {
		return teacher, nil
	}
	return nil, sql.ErrNoRows
}

type stubSlotStore struct {
	slots    map[string][]models.ScheduleSlot
	created  []models.ScheduleSlot
	cleared  []string
	clearErr error
}

func (m *stubSlotStore) ListBySection(ctx context.Context, sectionID string) ([]models.ScheduleSlot, error) {
	return m.slots[sectionID], nil
}

func (m *stubSlotStore) Create(ctx context.Context, slot *models.ScheduleSlot) error {
	slot.ID = "slot-new"
	m.created = append(m.created, *slot)
	return nil
}

func (m *stubSlotStore) DeleteBySection(ctx context.Context, sectionID string) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.cleared = append(m.cleared, sectionID)
	return nil
}

func newSectionFixture(repo *stubSectionRepo, slots *stubSlotStore) *SectionService {
	curriculum := &stubCurriculumReader{links: map[string]*models.CareerCourse{"cc-1": {ID: "cc-1", CareerID: "car-1", CourseID: "course-1"}}}
	terms := &stubTermReader{terms: map[string]*models.Term{"term-1": {ID: "term-1", Name: "2025-1C"}}}
	teachers := &stubTeacherReader{teachers: map[string]*models.Teacher{"tea-1": {ID: "tea-1"}}}
	return NewSectionService(repo, curriculum, terms, teachers, slots, nil, nil)
}

func TestSectionCreateWithSchedule(t *testing.T) {
	repo := &stubSectionRepo{}
	slots := &stubSlotStore{}
	svc := newSectionFixture(repo, slots)

	section, err := svc.Create(context.Background(), CreateSectionRequest{
		CareerCourseID: "cc-1",
		TermID:         "term-1",
		Name:           " A ",
		MaxCapacity:    30,
		Slots: []ScheduleSlotRequest{
			{Weekday: 1, StartTime: "08:00", EndTime: "10:00", Room: "101"},
			{Weekday: 3, StartTime: "08:00", EndTime: "10:00", Room: "101"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "sec-new", section.ID)
	assert.Equal(t, "A", section.Name)
	assert.True(t, section.Active)
	assert.Zero(t, section.Occupancy)
	require.Len(t, slots.created, 2)
	assert.Equal(t, "sec-new", slots.created[0].SectionID)
}

func TestSectionCreateRejectsDuplicateName(t *testing.T) {
	repo := &stubSectionRepo{usedNames: map[string]bool{"A": true}}
	svc := newSectionFixture(repo, &stubSlotStore{})

	_, err := svc.Create(context.Background(), CreateSectionRequest{CareerCourseID: "cc-1", TermID: "term-1", Name: "A", MaxCapacity: 30})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSectionCreateUnknownCurriculumLink(t *testing.T) {
	svc := newSectionFixture(&stubSectionRepo{}, &stubSlotStore{})

	_, err := svc.Create(context.Background(), CreateSectionRequest{CareerCourseID: "cc-missing", TermID: "term-1", Name: "A", MaxCapacity: 30})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSectionUpdateRejectsCapacityBelowOccupancy(t *testing.T) {
	repo := &stubSectionRepo{details: map[string]models.SectionDetail{
		"sec-1": {Section: models.Section{ID: "sec-1", CareerCourseID: "cc-1", TermID: "term-1", Name: "A", MaxCapacity: 30, Occupancy: 25, Active: true}},
	}}
	svc := newSectionFixture(repo, &stubSlotStore{})

	_, err := svc.Update(context.Background(), "sec-1", UpdateSectionRequest{Name: "A", MaxCapacity: 20})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	assert.Equal(t, "capacity cannot be lower than current occupancy", appErr.Message)
	assert.Nil(t, repo.updated)
}

func TestSectionUpdateAllowsCapacityAtOccupancy(t *testing.T) {
	repo := &stubSectionRepo{details: map[string]models.SectionDetail{
		"sec-1": {Section: models.Section{ID: "sec-1", CareerCourseID: "cc-1", TermID: "term-1", Name: "A", MaxCapacity: 30, Occupancy: 25, Active: true}},
	}}
	svc := newSectionFixture(repo, &stubSlotStore{})

	section, err := svc.Update(context.Background(), "sec-1", UpdateSectionRequest{Name: "A", MaxCapacity: 25})
	require.NoError(t, err)
	assert.Equal(t, 25, section.MaxCapacity)
	// name uniqueness is checked against other sections only
	assert.Contains(t, repo.excludeIDs, "sec-1")
}

func TestSectionUpdateCanDeactivate(t *testing.T) {
	repo := &stubSectionRepo{details: map[string]models.SectionDetail{
		"sec-1": {Section: models.Section{ID: "sec-1", CareerCourseID: "cc-1", TermID: "term-1", Name: "A", MaxCapacity: 30, Occupancy: 10, Active: true}},
	}}
	svc := newSectionFixture(repo, &stubSlotStore{})

	inactive := false
	section, err := svc.Update(context.Background(), "sec-1", UpdateSectionRequest{Name: "A", MaxCapacity: 30, Active: &inactive})
	require.NoError(t, err)
	assert.False(t, section.Active)
}

func TestReplaceScheduleSwapsSlots(t *testing.T) {
	repo := &stubSectionRepo{details: map[string]models.SectionDetail{
		"sec-1": {Section: models.Section{ID: "sec-1", CareerCourseID: "cc-1", TermID: "term-1", Name: "A", MaxCapacity: 30, Active: true}},
	}}
	slots := &stubSlotStore{slots: map[string][]models.ScheduleSlot{
		"sec-1": {{ID: "slot-old", SectionID: "sec-1", Weekday: 5}},
	}}
	svc := newSectionFixture(repo, slots)

	created, err := svc.ReplaceSchedule(context.Background(), "sec-1", []ScheduleSlotRequest{
		{Weekday: 2, StartTime: "14:00", EndTime: "16:00", Room: "Lab 2"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sec-1"}, slots.cleared)
	require.Len(t, created, 1)
	assert.Equal(t, 2, created[0].Weekday)
	assert.Equal(t, "Lab 2", created[0].Room)
}

func TestReplaceScheduleValidatesSlots(t *testing.T) {
	svc := newSectionFixture(&stubSectionRepo{}, &stubSlotStore{})

	_, err := svc.ReplaceSchedule(context.Background(), "sec-1", []ScheduleSlotRequest{{Weekday: 9, StartTime: "08:00", EndTime: "10:00"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
