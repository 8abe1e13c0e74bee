package models

import "time"

// StudentCareer is a student's membership in one career. A student carries
// at most one active membership at a time; historical rows stay around with
// active = false.
type StudentCareer struct {
	ID        string     `db:"id" json:"id"`
	StudentID string     `db:"student_id" json:"student_id"`
	CareerID  string     `db:"career_id" json:"career_id"`
	Active    bool       `db:"active" json:"active"`
	StartDate time.Time  `db:"start_date" json:"start_date"`
	EndDate   *time.Time `db:"end_date" json:"end_date,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentCareerDetail enriches StudentCareer with student and career info.
type StudentCareerDetail struct {
	StudentCareer
	StudentFileNumber string `db:"student_file_number" json:"student_file_number"`
	StudentName       string `db:"student_name" json:"student_name"`
	CareerCode        string `db:"career_code" json:"career_code"`
	CareerName        string `db:"career_name" json:"career_name"`
}

// StudentCareerFilter provides filters for listing student careers.
type StudentCareerFilter struct {
	StudentID string
	CareerID  string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
