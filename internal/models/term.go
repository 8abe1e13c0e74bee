package models

import "time"

// Term represents an academic period (cuatrimestre).
type Term struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Year      int       `db:"year" json:"year"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TermFilter captures supported filters for listing terms.
type TermFilter struct {
	Year      *int
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
