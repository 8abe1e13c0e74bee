package models

import "time"

// Student represents a learner from the academic point of view.
type Student struct {
	ID         string     `db:"id" json:"id"`
	UserID     string     `db:"user_id" json:"user_id"`
	FileNumber string     `db:"file_number" json:"file_number"`
	Active     bool       `db:"active" json:"active"`
	EntryDate  time.Time  `db:"entry_date" json:"entry_date"`
	ExitDate   *time.Time `db:"exit_date" json:"exit_date,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentDetail contains student information with user context.
type StudentDetail struct {
	Student
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
