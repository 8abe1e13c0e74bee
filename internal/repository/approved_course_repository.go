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

// ApprovedCourseRepository handles the academic history of passed courses.
type ApprovedCourseRepository struct {
	db *sqlx.DB
}

// NewApprovedCourseRepository constructs the repository.
func NewApprovedCourseRepository(db *sqlx.DB) *ApprovedCourseRepository {
	return &ApprovedCourseRepository{db: db}
}

// List returns approved courses filtered by the provided criteria.
func (r *ApprovedCourseRepository) List(ctx context.Context, filter models.ApprovedCourseFilter) ([]models.ApprovedCourseDetail, int, error) {
	base := `FROM approved_courses a
JOIN courses co ON co.id = a.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentCareerID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_career_id = $%d", len(args)+1))
		args = append(args, filter.StudentCareerID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("a.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Condition != "" {
		conditions = append(conditions, fmt.Sprintf("a.condition = $%d", len(args)+1))
		args = append(args, filter.Condition)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"approved_at": "a.approved_at",
		"grade":       "a.grade",
		"course_code": "co.code",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "a.approved_at"
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

	query := fmt.Sprintf(`SELECT a.id, a.student_career_id, a.course_id, a.approved_at, a.grade, a.condition, a.act_number, a.created_at,
        co.code AS course_code, co.name AS course_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var records []models.ApprovedCourseDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list approved courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count approved courses: %w", err)
	}
	return records, total, nil
}

// Exists reports whether the student career has an approval record for the
// course. Runs on the outer connection: approvals never disappear during an
// admission transaction, so no lock is needed.
func (r *ApprovedCourseRepository) Exists(ctx context.Context, studentCareerID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM approved_courses WHERE student_career_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentCareerID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check approved course: %w", err)
	}
	return true, nil
}

// Create inserts a new approval record. The unique constraint on
// (student_career_id, course_id) keeps a course approved at most once.
func (r *ApprovedCourseRepository) Create(ctx context.Context, record *models.ApprovedCourse) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO approved_courses (id, student_career_id, course_id, approved_at, grade, condition, act_number, created_at)
        VALUES (:id, :student_career_id, :course_id, :approved_at, :grade, :condition, :act_number, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return err
	}
	return nil
}

// Delete removes an approval record, used to correct administrative errors.
func (r *ApprovedCourseRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM approved_courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete approved course: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete approved course rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
