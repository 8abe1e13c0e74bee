package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/academico-sys/siu-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments. Creation and
// withdrawal are transaction-scoped: they run inside the admission
// protocol's transaction alongside the occupancy counter mutation.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
JOIN sections s ON s.id = e.section_id
JOIN courses co ON co.id = e.course_id
JOIN terms t ON t.id = e.term_id
JOIN student_careers sc ON sc.id = e.student_career_id
JOIN students st ON st.id = sc.student_id`
	var conditions []string
	var args []interface{}

	if filter.StudentCareerID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_career_id = $%d", len(args)+1))
		args = append(args, filter.StudentCareerID)
	}
	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("e.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("e.term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("e.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"enrolled_at": "e.enrolled_at",
		"course_code": "co.code",
		"section":     "s.name",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "e.enrolled_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.student_career_id, e.section_id, e.course_id, e.term_id, e.active, e.enrolled_at, e.withdrawn_at,
        s.name AS section_name, co.code AS course_code, co.name AS course_name, t.name AS term_name, st.file_number AS student_file_number
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_career_id, section_id, course_id, term_id, active, enrolled_at, withdrawn_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByIDTx loads an enrollment inside the caller's transaction.
func (r *EnrollmentRepository) FindByIDTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_career_id, section_id, course_id, term_id, active, enrolled_at, withdrawn_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := tx.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsActiveBySection checks for an active enrollment of the student
// career in the given section.
func (r *EnrollmentRepository) ExistsActiveBySection(ctx context.Context, tx *sqlx.Tx, studentCareerID, sectionID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_career_id = $1 AND section_id = $2 AND active LIMIT 1`
	var exists int
	if err := tx.GetContext(ctx, &exists, query, studentCareerID, sectionID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check section enrollment: %w", err)
	}
	return true, nil
}

// ExistsActiveByCourseTerm checks for an active enrollment of the student
// career in the same course and term, through any section.
func (r *EnrollmentRepository) ExistsActiveByCourseTerm(ctx context.Context, tx *sqlx.Tx, studentCareerID, courseID, termID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_career_id = $1 AND course_id = $2 AND term_id = $3 AND active LIMIT 1`
	var exists int
	if err := tx.GetContext(ctx, &exists, query, studentCareerID, courseID, termID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course-term enrollment: %w", err)
	}
	return true, nil
}

// CreateTx inserts the enrollment inside the caller's transaction. Unique
// constraint violations are returned unwrapped so the service can
// reclassify them against the rejection taxonomy.
func (r *EnrollmentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, student_career_id, section_id, course_id, term_id, active, enrolled_at, withdrawn_at)
        VALUES (:id, :student_career_id, :section_id, :course_id, :term_id, :active, :enrolled_at, :withdrawn_at)`
	if _, err := tx.NamedExecContext(ctx, query, enrollment); err != nil {
		return err
	}
	return nil
}

// WithdrawTx marks the enrollment inactive and stamps the withdrawal time,
// inside the caller's transaction. The update only matches while the row is
// still active; the returned flag reports whether this call flipped it, so a
// concurrent withdrawal that lost the race releases no seat.
func (r *EnrollmentRepository) WithdrawTx(ctx context.Context, tx *sqlx.Tx, id string, withdrawnAt time.Time) (bool, error) {
	const query = `UPDATE enrollments SET active = FALSE, withdrawn_at = $2 WHERE id = $1 AND active`
	result, err := tx.ExecContext(ctx, query, id, withdrawnAt)
	if err != nil {
		return false, fmt.Errorf("withdraw enrollment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("withdraw enrollment: %w", err)
	}
	return affected > 0, nil
}

// CountActiveBySection returns the number of active enrollments for a section.
func (r *EnrollmentRepository) CountActiveBySection(ctx context.Context, sectionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND active`
	var count int
	if err := r.db.GetContext(ctx, &count, query, sectionID); err != nil {
		return 0, fmt.Errorf("count active enrollments: %w", err)
	}
	return count, nil
}

// ListActiveByStudentCareer returns the student career's active enrollments.
func (r *EnrollmentRepository) ListActiveByStudentCareer(ctx context.Context, studentCareerID string) ([]models.Enrollment, error) {
	const query = `SELECT id, student_career_id, section_id, course_id, term_id, active, enrolled_at, withdrawn_at FROM enrollments WHERE student_career_id = $1 AND active`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentCareerID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}
