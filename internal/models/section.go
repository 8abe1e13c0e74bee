package models

import "time"

// Section is one offering (comisión) of a career course within a term. The
// occupancy counter is denormalized from the active enrollment count and is
// only ever mutated under the section's row lock.
type Section struct {
	ID             string    `db:"id" json:"id"`
	CareerCourseID string    `db:"career_course_id" json:"career_course_id"`
	TermID         string    `db:"term_id" json:"term_id"`
	Name           string    `db:"name" json:"name"`
	MaxCapacity    int       `db:"max_capacity" json:"max_capacity"`
	Occupancy      int       `db:"occupancy" json:"occupancy"`
	TeacherID      *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// HasCapacity reports whether the section can admit one more student.
func (s *Section) HasCapacity() bool {
	return s.Occupancy < s.MaxCapacity
}

// SectionDetail extends Section with curriculum context needed by the
// admission protocol: the owning career, the offered course and the term.
type SectionDetail struct {
	Section
	CareerID   string `db:"career_id" json:"career_id"`
	CourseID   string `db:"course_id" json:"course_id"`
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
	TermName   string `db:"term_name" json:"term_name"`
}

// SectionFilter defines filter criteria for listing sections.
type SectionFilter struct {
	CareerCourseID string
	TermID         string
	TeacherID      string
	Active         *bool
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}

// OccupancyDrift is one row of the reconciliation report: a section whose
// counter disagrees with its count of active enrollments.
type OccupancyDrift struct {
	SectionID   string `db:"section_id" json:"section_id"`
	SectionName string `db:"section_name" json:"section_name"`
	Occupancy   int    `db:"occupancy" json:"occupancy"`
	ActiveCount int    `db:"active_count" json:"active_count"`
}
