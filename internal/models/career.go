package models

import "time"

// CareerModality enumerates how a career is delivered.
type CareerModality string

const (
	ModalityOnSite  CareerModality = "PRESENCIAL"
	ModalityVirtual CareerModality = "VIRTUAL"
	ModalityMixed   CareerModality = "MIXTA"
)

// Career represents a degree program offered by an institute.
type Career struct {
	ID            string         `db:"id" json:"id"`
	InstituteID   string         `db:"institute_id" json:"institute_id"`
	Code          string         `db:"code" json:"code"`
	Name          string         `db:"name" json:"name"`
	Description   string         `db:"description" json:"description,omitempty"`
	DurationYears int            `db:"duration_years" json:"duration_years"`
	Modality      CareerModality `db:"modality" json:"modality"`
	Active        bool           `db:"active" json:"active"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// CareerDetail extends Career with institute context.
type CareerDetail struct {
	Career
	InstituteCode string `db:"institute_code" json:"institute_code"`
	InstituteName string `db:"institute_name" json:"institute_name"`
}

// CareerFilter defines filter criteria for listing careers.
type CareerFilter struct {
	InstituteID string
	Modality    CareerModality
	Search      string
	Active      *bool
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
