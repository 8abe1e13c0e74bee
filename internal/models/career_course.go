package models

import "time"

// CareerCourse links a course into a career's curriculum. Prerequisite
// edges always point at other CareerCourse rows of the same career; this is
// enforced when edges are written, and the career reference is immutable
// once the link exists.
type CareerCourse struct {
	ID        string    `db:"id" json:"id"`
	CareerID  string    `db:"career_id" json:"career_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Year      int       `db:"year" json:"year"`
	TermSlot  *int      `db:"term_slot" json:"term_slot,omitempty"`
	Mandatory bool      `db:"mandatory" json:"mandatory"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CareerCourseDetail enriches CareerCourse with course and career info.
type CareerCourseDetail struct {
	CareerCourse
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
	CareerCode string `db:"career_code" json:"career_code"`
}

// Prerequisite is one edge of the correlativas graph: the target course
// must be approved before enrolling in the source link's course.
type Prerequisite struct {
	CareerCourseID string    `db:"career_course_id" json:"career_course_id"`
	RequiresID     string    `db:"requires_id" json:"requires_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// PrerequisiteDetail carries the required course identity for display and
// for rejection messages.
type PrerequisiteDetail struct {
	RequiresID string `db:"requires_id" json:"requires_id"`
	CourseID   string `db:"course_id" json:"course_id"`
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
}

// CareerCourseFilter defines filter criteria for curriculum listings.
type CareerCourseFilter struct {
	CareerID  string
	CourseID  string
	Year      *int
	Mandatory *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
