package models

import "time"

// GradeType enumerates the evaluation kinds recorded against an enrollment.
type GradeType string

const (
	GradeTypeFirstPartial  GradeType = "PARCIAL_1"
	GradeTypeSecondPartial GradeType = "PARCIAL_2"
	GradeTypeMakeup        GradeType = "RECUPERATORIO"
	GradeTypeFinal         GradeType = "FINAL"
	GradeTypePractical     GradeType = "TP"
	GradeTypeOther         GradeType = "OTRO"
)

// Grade is one partial or final mark for an enrollment, on a 0-10 scale.
type Grade struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	Type         GradeType `db:"type" json:"type"`
	Score        float64   `db:"score" json:"score"`
	GradedAt     time.Time `db:"graded_at" json:"graded_at"`
	Notes        string    `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// GradeFilter provides filters for listing grades.
type GradeFilter struct {
	EnrollmentID string
	Type         GradeType
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
