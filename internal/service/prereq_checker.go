package service

import (
	"context"
	"fmt"

	"github.com/academico-sys/siu-api/internal/models"
	appErrors "github.com/academico-sys/siu-api/pkg/errors"
)

type approvedCourseReader interface {
	Exists(ctx context.Context, studentCareerID, courseID string) (bool, error)
}

type prerequisiteSource interface {
	ListPrerequisites(ctx context.Context, careerCourseID string) ([]models.PrerequisiteDetail, error)
}

// PrerequisiteChecker evaluates whether a student career may take a course:
// the course itself must not be approved yet, and every prerequisite of its
// curriculum link must be.
type PrerequisiteChecker struct {
	approved   approvedCourseReader
	curriculum prerequisiteSource
}

// NewPrerequisiteChecker constructs the checker.
func NewPrerequisiteChecker(approved approvedCourseReader, curriculum prerequisiteSource) *PrerequisiteChecker {
	return &PrerequisiteChecker{approved: approved, curriculum: curriculum}
}

// Check validates the prerequisite rules for one section's course. It
// reports every unmet prerequisite by course code and name rather than
// stopping at the first.
func (c *PrerequisiteChecker) Check(ctx context.Context, studentCareerID string, section *models.SectionDetail) error {
	done, err := c.approved.Exists(ctx, studentCareerID, section.CourseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check approved course")
	}
	if done {
		return appErrors.ErrCourseAlreadyApproved
	}

	prerequisites, err := c.curriculum.ListPrerequisites(ctx, section.CareerCourseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisites")
	}

	var missing []string
	for _, p := range prerequisites {
		ok, err := c.approved.Exists(ctx, studentCareerID, p.CourseID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prerequisite")
		}
		if !ok {
			missing = append(missing, fmt.Sprintf("%s %s", p.CourseCode, p.CourseName))
		}
	}
	if len(missing) > 0 {
		return appErrors.WithDetails(appErrors.ErrUnmetPrerequisites, missing...)
	}
	return nil
}
