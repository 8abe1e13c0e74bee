package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/academico-sys/siu-api/internal/models"
)

// TranscriptRow is one line of a student career transcript: an approved
// course with its curriculum position.
type TranscriptRow struct {
	CourseCode string                   `db:"course_code"`
	CourseName string                   `db:"course_name"`
	Year       int                      `db:"year"`
	Grade      int                      `db:"grade"`
	Condition  models.ApprovalCondition `db:"condition"`
	ApprovedAt string                   `db:"approved_at"`
	ActNumber  string                   `db:"act_number"`
}

// AcademicRecordRepository aggregates the read models behind transcripts and
// rosters.
type AcademicRecordRepository struct {
	db *sqlx.DB
}

// NewAcademicRecordRepository constructs the repository.
func NewAcademicRecordRepository(db *sqlx.DB) *AcademicRecordRepository {
	return &AcademicRecordRepository{db: db}
}

// Transcript returns the approved courses of a student career ordered by
// curriculum year and approval date.
func (r *AcademicRecordRepository) Transcript(ctx context.Context, studentCareerID string) ([]TranscriptRow, error) {
	const query = `SELECT co.code AS course_code, co.name AS course_name, cc.year, ac.grade, ac.condition,
        TO_CHAR(ac.approved_at, 'YYYY-MM-DD') AS approved_at, ac.act_number
        FROM approved_courses ac
        JOIN courses co ON co.id = ac.course_id
        JOIN student_careers sc ON sc.id = ac.student_career_id
        JOIN career_courses cc ON cc.career_id = sc.career_id AND cc.course_id = ac.course_id
        WHERE ac.student_career_id = $1
        ORDER BY cc.year, ac.approved_at`
	var rows []TranscriptRow
	if err := r.db.SelectContext(ctx, &rows, query, studentCareerID); err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	return rows, nil
}

// RosterRow is one line of a section roster export.
type RosterRow struct {
	FileNumber  string `db:"file_number"`
	StudentName string `db:"student_name"`
	Email       string `db:"email"`
	EnrolledAt  string `db:"enrolled_at"`
}

// Roster returns the active enrollments of a section with student identity,
// ordered by file number.
func (r *AcademicRecordRepository) Roster(ctx context.Context, sectionID string) ([]RosterRow, error) {
	const query = `SELECT st.file_number, u.full_name AS student_name, u.email,
        TO_CHAR(e.enrolled_at, 'YYYY-MM-DD HH24:MI') AS enrolled_at
        FROM enrollments e
        JOIN student_careers sc ON sc.id = e.student_career_id
        JOIN students st ON st.id = sc.student_id
        JOIN users u ON u.id = st.user_id
        WHERE e.section_id = $1 AND e.active = TRUE
        ORDER BY st.file_number`
	var rows []RosterRow
	if err := r.db.SelectContext(ctx, &rows, query, sectionID); err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return rows, nil
}
