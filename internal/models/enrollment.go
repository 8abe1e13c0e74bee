package models

import "time"

// Enrollment links a student career to a section. Course and term are
// denormalized from the section at creation time so the storage layer can
// enforce the one-active-enrollment-per-course-per-term constraint.
//
// Rows are never deleted; withdrawal flips Active and stamps WithdrawnAt.
// The (student_career_id, section_id) pair is unique regardless of state,
// so a withdrawn student cannot re-enter the same section.
type Enrollment struct {
	ID              string     `db:"id" json:"id"`
	StudentCareerID string     `db:"student_career_id" json:"student_career_id"`
	SectionID       string     `db:"section_id" json:"section_id"`
	CourseID        string     `db:"course_id" json:"course_id"`
	TermID          string     `db:"term_id" json:"term_id"`
	Active          bool       `db:"active" json:"active"`
	EnrolledAt      time.Time  `db:"enrolled_at" json:"enrolled_at"`
	WithdrawnAt     *time.Time `db:"withdrawn_at" json:"withdrawn_at,omitempty"`
}

// EnrollmentDetail enriches Enrollment with section and course info.
type EnrollmentDetail struct {
	Enrollment
	SectionName       string `db:"section_name" json:"section_name"`
	CourseCode        string `db:"course_code" json:"course_code"`
	CourseName        string `db:"course_name" json:"course_name"`
	TermName          string `db:"term_name" json:"term_name"`
	StudentFileNumber string `db:"student_file_number" json:"student_file_number"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentCareerID string
	SectionID       string
	CourseID        string
	TermID          string
	Active          *bool
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}
