package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/academico-sys/siu-api/internal/models"
	"github.com/academico-sys/siu-api/internal/repository"
	appErrors "github.com/academico-sys/siu-api/pkg/errors"
	"github.com/academico-sys/siu-api/pkg/export"
)

type recordReader interface {
	Transcript(ctx context.Context, studentCareerID string) ([]repository.TranscriptRow, error)
	Roster(ctx context.Context, sectionID string) ([]repository.RosterRow, error)
}

type sectionReader interface {
	FindByID(ctx context.Context, id string) (*models.SectionDetail, error)
}

type membershipReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.StudentCareerDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered document ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders section rosters as CSV and transcripts as PDF.
type ExportService struct {
	records  recordReader
	sections sectionReader
	careers  membershipReader
	csv      csvRenderer
	pdf      pdfRenderer
	enabled  bool
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(records recordReader, sections sectionReader, careers membershipReader, enabled bool, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{records: records, sections: sections, careers: careers, csv: csv, pdf: pdf, enabled: enabled, logger: logger}
}

// Enabled reports whether export endpoints are switched on.
func (s *ExportService) Enabled() bool {
	return s != nil && s.enabled
}

// Roster renders the active enrollment list of a section as CSV.
func (s *ExportService) Roster(ctx context.Context, sectionID string) (*ExportFile, error) {
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
	}
	rows, err := s.records.Roster(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	dataset := export.Dataset{Headers: []string{"file_number", "student", "email", "enrolled_at"}}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"file_number": row.FileNumber,
			"student":     row.StudentName,
			"email":       row.Email,
			"enrolled_at": row.EnrolledAt,
		})
	}

	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	filename := fmt.Sprintf("roster_%s_%s_%s.csv", section.CourseCode, section.Name, time.Now().UTC().Format("20060102"))
	return &ExportFile{Filename: filename, ContentType: "text/csv", Payload: payload}, nil
}

// Transcript renders the approved course history of a student career as PDF.
func (s *ExportService) Transcript(ctx context.Context, studentCareerID string) (*ExportFile, error) {
	membership, err := s.careers.FindDetailByID(ctx, studentCareerID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student career not found")
	}
	rows, err := s.records.Transcript(ctx, studentCareerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transcript")
	}

	dataset := export.Dataset{Headers: []string{"year", "code", "course", "grade", "condition", "approved_at", "act"}}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"year":        fmt.Sprintf("%d", row.Year),
			"code":        row.CourseCode,
			"course":      row.CourseName,
			"grade":       fmt.Sprintf("%d", row.Grade),
			"condition":   string(row.Condition),
			"approved_at": row.ApprovedAt,
			"act":         row.ActNumber,
		})
	}

	title := fmt.Sprintf("Transcript %s - %s", membership.StudentFileNumber, membership.CareerName)
	payload, err := s.pdf.Render(dataset, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
	}

	filename := fmt.Sprintf("transcript_%s_%s.pdf", membership.StudentFileNumber, time.Now().UTC().Format("20060102"))
	return &ExportFile{Filename: filename, ContentType: "application/pdf", Payload: payload}, nil
}
