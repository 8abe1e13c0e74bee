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

// CareerCourseRepository handles curriculum links and prerequisite edges.
type CareerCourseRepository struct {
	db *sqlx.DB
}

// NewCareerCourseRepository constructs the repository.
func NewCareerCourseRepository(db *sqlx.DB) *CareerCourseRepository {
	return &CareerCourseRepository{db: db}
}

// List returns curriculum links filtered by the provided criteria.
func (r *CareerCourseRepository) List(ctx context.Context, filter models.CareerCourseFilter) ([]models.CareerCourseDetail, int, error) {
	base := `FROM career_courses cc
JOIN courses co ON co.id = cc.course_id
JOIN careers ca ON ca.id = cc.career_id`
	var conditions []string
	var args []interface{}

	if filter.CareerID != "" {
		conditions = append(conditions, fmt.Sprintf("cc.career_id = $%d", len(args)+1))
		args = append(args, filter.CareerID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("cc.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Year != nil {
		conditions = append(conditions, fmt.Sprintf("cc.year = $%d", len(args)+1))
		args = append(args, *filter.Year)
	}
	if filter.Mandatory != nil {
		conditions = append(conditions, fmt.Sprintf("cc.mandatory = $%d", len(args)+1))
		args = append(args, *filter.Mandatory)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"year":        "cc.year",
		"course_code": "co.code",
		"created_at":  "cc.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "cc.year"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf(`SELECT cc.id, cc.career_id, cc.course_id, cc.year, cc.term_slot, cc.mandatory, cc.created_at, cc.updated_at,
        co.code AS course_code, co.name AS course_name, ca.code AS career_code
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var links []models.CareerCourseDetail
	if err := r.db.SelectContext(ctx, &links, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list career courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count career courses: %w", err)
	}
	return links, total, nil
}

// FindByID loads a curriculum link by identifier.
func (r *CareerCourseRepository) FindByID(ctx context.Context, id string) (*models.CareerCourse, error) {
	const query = `SELECT id, career_id, course_id, year, term_slot, mandatory, created_at, updated_at FROM career_courses WHERE id = $1`
	var link models.CareerCourse
	if err := r.db.GetContext(ctx, &link, query, id); err != nil {
		return nil, err
	}
	return &link, nil
}

// ExistsByCareerAndCourse checks curriculum uniqueness per (career, course).
func (r *CareerCourseRepository) ExistsByCareerAndCourse(ctx context.Context, careerID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM career_courses WHERE career_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, careerID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check career course uniqueness: %w", err)
	}
	return true, nil
}

// Create inserts a new curriculum link.
func (r *CareerCourseRepository) Create(ctx context.Context, link *models.CareerCourse) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	link.UpdatedAt = now
	const query = `INSERT INTO career_courses (id, career_id, course_id, year, term_slot, mandatory, created_at, updated_at)
        VALUES (:id, :career_id, :course_id, :year, :term_slot, :mandatory, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, link); err != nil {
		return fmt.Errorf("create career course: %w", err)
	}
	return nil
}

// Update modifies year, term slot and mandatory flag. The career and course
// references are immutable once the link exists, which keeps prerequisite
// edges valid without read-time revalidation.
func (r *CareerCourseRepository) Update(ctx context.Context, link *models.CareerCourse) error {
	link.UpdatedAt = time.Now().UTC()
	const query = `UPDATE career_courses SET year = :year, term_slot = :term_slot, mandatory = :mandatory, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, link); err != nil {
		return fmt.Errorf("update career course: %w", err)
	}
	return nil
}

// Delete removes a curriculum link and its prerequisite edges.
func (r *CareerCourseRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete career course tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM career_course_prerequisites WHERE career_course_id = $1 OR requires_id = $1`, id); err != nil {
		return fmt.Errorf("delete prerequisite edges: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM career_courses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete career course: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete career course tx: %w", err)
	}
	return nil
}

// AddPrerequisite records an edge: careerCourseID requires requiresID.
func (r *CareerCourseRepository) AddPrerequisite(ctx context.Context, careerCourseID, requiresID string) error {
	const query = `INSERT INTO career_course_prerequisites (career_course_id, requires_id, created_at) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, careerCourseID, requiresID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add prerequisite: %w", err)
	}
	return nil
}

// RemovePrerequisite deletes a prerequisite edge.
func (r *CareerCourseRepository) RemovePrerequisite(ctx context.Context, careerCourseID, requiresID string) error {
	const query = `DELETE FROM career_course_prerequisites WHERE career_course_id = $1 AND requires_id = $2`
	if _, err := r.db.ExecContext(ctx, query, careerCourseID, requiresID); err != nil {
		return fmt.Errorf("remove prerequisite: %w", err)
	}
	return nil
}

// ListPrerequisites returns the prerequisite edges of a curriculum link with
// the required course identity attached.
func (r *CareerCourseRepository) ListPrerequisites(ctx context.Context, careerCourseID string) ([]models.PrerequisiteDetail, error) {
	const query = `SELECT p.requires_id, cc.course_id, co.code AS course_code, co.name AS course_name
        FROM career_course_prerequisites p
        JOIN career_courses cc ON cc.id = p.requires_id
        JOIN courses co ON co.id = cc.course_id
        WHERE p.career_course_id = $1
        ORDER BY co.code`
	var prerequisites []models.PrerequisiteDetail
	if err := r.db.SelectContext(ctx, &prerequisites, query, careerCourseID); err != nil {
		return nil, fmt.Errorf("list prerequisites: %w", err)
	}
	return prerequisites, nil
}
