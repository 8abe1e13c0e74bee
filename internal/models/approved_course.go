package models

import "time"

// ApprovalCondition describes how a course was passed.
type ApprovalCondition string

const (
	ConditionRegular     ApprovalCondition = "REGULAR"
	ConditionPromoted    ApprovalCondition = "PROMOCIONADO"
	ConditionEquivalence ApprovalCondition = "EQUIVALENCIA"
)

// ApprovedCourse records a course passed by a student career. Unique per
// (student_career_id, course_id); this table is the input of the
// prerequisite check.
type ApprovedCourse struct {
	ID              string            `db:"id" json:"id"`
	StudentCareerID string            `db:"student_career_id" json:"student_career_id"`
	CourseID        string            `db:"course_id" json:"course_id"`
	ApprovedAt      time.Time         `db:"approved_at" json:"approved_at"`
	Grade           int               `db:"grade" json:"grade"`
	Condition       ApprovalCondition `db:"condition" json:"condition"`
	ActNumber       string            `db:"act_number" json:"act_number,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
}

// ApprovedCourseDetail enriches ApprovedCourse with course info.
type ApprovedCourseDetail struct {
	ApprovedCourse
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
}

// ApprovedCourseFilter provides filters for listing academic records.
type ApprovedCourseFilter struct {
	StudentCareerID string
	CourseID        string
	Condition       ApprovalCondition
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}
