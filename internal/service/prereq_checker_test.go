package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academico-sys/siu-api/internal/models"
	appErrors "github.com/academico-sys/siu-api/pkg/errors"
)

type stubApprovedReader struct {
	approved map[string]bool
}

func (m *stubApprovedReader) Exists(ctx context.Context, studentCareerID, courseID string) (bool, error) {
	return m.approved[courseID], nil
}

type stubPrereqSource struct {
	prerequisites []models.PrerequisiteDetail
}

func (m *stubPrereqSource) ListPrerequisites(ctx context.Context, careerCourseID string) ([]models.PrerequisiteDetail, error) {
	return m.prerequisites, nil
}

func checkerSection() *models.SectionDetail {
	return &models.SectionDetail{
		Section:  models.Section{ID: "sec-1", CareerCourseID: "cc-3"},
		CourseID: "course-3",
	}
}

func TestCheckPassesWithAllPrerequisitesApproved(t *testing.T) {
	approved := &stubApprovedReader{approved: map[string]bool{"course-1": true, "course-2": true}}
	source := &stubPrereqSource{prerequisites: []models.PrerequisiteDetail{
		{RequiresID: "cc-1", CourseID: "course-1", CourseCode: "MAT101", CourseName: "Algebra"},
		{RequiresID: "cc-2", CourseID: "course-2", CourseCode: "MAT102", CourseName: "Analysis"},
	}}
	checker := NewPrerequisiteChecker(approved, source)

	require.NoError(t, checker.Check(context.Background(), "sc-1", checkerSection()))
}

func TestCheckRejectsApprovedCourse(t *testing.T) {
	approved := &stubApprovedReader{approved: map[string]bool{"course-3": true}}
	checker := NewPrerequisiteChecker(approved, &stubPrereqSource{})

	err := checker.Check(context.Background(), "sc-1", checkerSection())
	assert.Equal(t, appErrors.ErrCourseAlreadyApproved, err)
}

func TestCheckCollectsEveryMissingPrerequisite(t *testing.T) {
	approved := &stubApprovedReader{approved: map[string]bool{"course-1": true}}
	source := &stubPrereqSource{prerequisites: []models.PrerequisiteDetail{
		{RequiresID: "cc-1", CourseID: "course-1", CourseCode: "MAT101", CourseName: "Algebra"},
		{RequiresID: "cc-2", CourseID: "course-2", CourseCode: "MAT102", CourseName: "Analysis"},
		{RequiresID: "cc-4", CourseID: "course-4", CourseCode: "FIS101", CourseName: "Physics I"},
	}}
	checker := NewPrerequisiteChecker(approved, source)

	err := checker.Check(context.Background(), "sc-1", checkerSection())
	require.Error(t, err)
	rejection := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnmetPrerequisites.Code, rejection.Code)
	assert.Equal(t, []string{"MAT102 Analysis", "FIS101 Physics I"}, rejection.Details)
}

func TestCheckNoPrerequisites(t *testing.T) {
	checker := NewPrerequisiteChecker(&stubApprovedReader{}, &stubPrereqSource{})
	require.NoError(t, checker.Check(context.Background(), "sc-1", checkerSection()))
}
