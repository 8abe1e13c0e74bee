package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academico-sys/siu-api/internal/models"
	"github.com/academico-sys/siu-api/internal/repository"
	appErrors "github.com/academico-sys/siu-api/pkg/errors"
	"github.com/academico-sys/siu-api/pkg/export"
)

type stubRecordReader struct {
	roster     []repository.RosterRow
	transcript []repository.TranscriptRow
}

func (m *stubRecordReader) Roster(ctx context.Context, sectionID string) ([]repository.RosterRow, error) {
	return m.roster, nil
}

func (m *stubRecordReader) Transcript(ctx context.Context, studentCareerID string) ([]repository.TranscriptRow, error) {
	return m.transcript, nil
}

type stubSectionFinder struct {
	details map[string]*models.SectionDetail
}

func (m *stubSectionFinder) FindByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	if detail, ok := m.details[id]; ok {
		return detail, nil
	}
	return nil, sql.ErrNoRows
}

type stubMembershipFinder struct {
	details map[string]*models.StudentCareerDetail
}

func (m *stubMembershipFinder) FindDetailByID(ctx context.Context, id string) (*models.StudentCareerDetail, error) {
	if detail, ok := m.details[id]; ok {
		return detail, nil
	}
	return nil, sql.ErrNoRows
}

type capturingPDF struct {
	dataset export.Dataset
	title   string
}

func (m *capturingPDF) Render(data export.Dataset, title string) ([]byte, error) {
	m.dataset = data
	m.title = title
	return []byte("%PDF-1.4 stub"), nil
}

func newExportFixture(records *stubRecordReader) (*ExportService, *capturingPDF) {
	sections := &stubSectionFinder{details: map[string]*models.SectionDetail{
		"sec-1": {
			Section:    models.Section{ID: "sec-1", Name: "A"},
			CourseCode: "MAT101",
			CourseName: "Algebra",
		},
	}}
	memberships := &stubMembershipFinder{details: map[string]*models.StudentCareerDetail{
		"sc-1": {
			StudentCareer:     models.StudentCareer{ID: "sc-1", StudentID: "stu-1", CareerID: "car-1", Active: true},
			StudentFileNumber: "A-1042",
			CareerName:        "Ingenieria en Sistemas",
		},
	}}
	pdf := &capturingPDF{}
	svc := NewExportService(records, sections, memberships, true, nil, nil, pdf)
	return svc, pdf
}

func TestRosterRendersCSV(t *testing.T) {
	records := &stubRecordReader{roster: []repository.RosterRow{
		{FileNumber: "A-1042", StudentName: "Perez, Juan", Email: "jperez@example.edu", EnrolledAt: "2025-03-10"},
		{FileNumber: "A-1043", StudentName: "Gomez, Ana", Email: "agomez@example.edu", EnrolledAt: "2025-03-11"},
	}}
	svc, _ := newExportFixture(records)

	file, err := svc.Roster(context.Background(), "sec-1")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasPrefix(file.Filename, "roster_MAT101_A_"))

	lines := strings.Split(strings.TrimSpace(string(file.Payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "file_number,student,email,enrolled_at", lines[0])
	assert.Equal(t, `A-1042,"Perez, Juan",jperez@example.edu,2025-03-10`, lines[1])
}

func TestRosterUnknownSection(t *testing.T) {
	svc, _ := newExportFixture(&stubRecordReader{})

	_, err := svc.Roster(context.Background(), "sec-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTranscriptRendersPDF(t *testing.T) {
	records := &stubRecordReader{transcript: []repository.TranscriptRow{
		{CourseCode: "MAT101", CourseName: "Algebra", Year: 1, Grade: 8, Condition: models.ConditionRegular, ApprovedAt: "2024-12-15", ActNumber: "ACT-33"},
	}}
	svc, pdf := newExportFixture(records)

	file, err := svc.Transcript(context.Background(), "sc-1")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(file.Filename, "transcript_A-1042_"))
	assert.Equal(t, "Transcript A-1042 - Ingenieria en Sistemas", pdf.title)
	require.Len(t, pdf.dataset.Rows, 1)
	assert.Equal(t, "MAT101", pdf.dataset.Rows[0]["code"])
	assert.Equal(t, "8", pdf.dataset.Rows[0]["grade"])
}

func TestTranscriptUnknownMembership(t *testing.T) {
	svc, _ := newExportFixture(&stubRecordReader{})

	_, err := svc.Transcript(context.Background(), "sc-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportsDisabled(t *testing.T) {
	svc := NewExportService(&stubRecordReader{}, &stubSectionFinder{}, &stubMembershipFinder{}, false, nil, nil, nil)
	assert.False(t, svc.Enabled())

	var nilSvc *ExportService
	assert.False(t, nilSvc.Enabled())
}
