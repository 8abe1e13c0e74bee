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

// SectionRepository handles persistence for sections (comisiones).
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

const sectionDetailColumns = `s.id, s.career_course_id, s.term_id, s.name, s.max_capacity, s.occupancy, s.teacher_id, s.active, s.created_at, s.updated_at,
        cc.career_id AS career_id, cc.course_id AS course_id, co.code AS course_code, co.name AS course_name, t.name AS term_name`

const sectionDetailJoins = `FROM sections s
JOIN career_courses cc ON cc.id = s.career_course_id
JOIN courses co ON co.id = cc.course_id
JOIN terms t ON t.id = s.term_id`

// List returns sections filtered by the provided criteria.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error) {
	base := sectionDetailJoins
	var conditions []string
	var args []interface{}

	if filter.CareerCourseID != "" {
		conditions = append(conditions, fmt.Sprintf("s.career_course_id = $%d", len(args)+1))
		args = append(args, filter.CareerCourseID)
	}
	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("s.term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("s.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":        "s.name",
		"occupancy":   "s.occupancy",
		"course_code": "co.code",
		"created_at":  "s.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "s.name"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", sectionDetailColumns, base+clause, orderBy, order, size, offset)

	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}
	return sections, total, nil
}

// FindByID returns a section with curriculum context.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.id = $1", sectionDetailColumns, sectionDetailJoins)
	var section models.SectionDetail
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// FindByIDForUpdate loads the section inside the caller's transaction while
// taking an exclusive row lock on it. Every admission and withdrawal for a
// section passes through this lock, which serializes them.
func (r *SectionRepository) FindByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.SectionDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.id = $1 FOR UPDATE OF s", sectionDetailColumns, sectionDetailJoins)
	var section models.SectionDetail
	if err := tx.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// IncrementOccupancy bumps the occupancy counter inside the caller's
// transaction. The row must already be locked via FindByIDForUpdate.
func (r *SectionRepository) IncrementOccupancy(ctx context.Context, tx *sqlx.Tx, id string) error {
	const query = `UPDATE sections SET occupancy = occupancy + 1, updated_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("increment section occupancy: %w", err)
	}
	return nil
}

// DecrementOccupancy lowers the occupancy counter, floored at zero to guard
// against counter drift.
func (r *SectionRepository) DecrementOccupancy(ctx context.Context, tx *sqlx.Tx, id string) error {
	const query = `UPDATE sections SET occupancy = GREATEST(occupancy - 1, 0), updated_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("decrement section occupancy: %w", err)
	}
	return nil
}

// ListOccupancyDrift compares each section's counter against its count of
// active enrollments and returns the rows that disagree.
func (r *SectionRepository) ListOccupancyDrift(ctx context.Context) ([]models.OccupancyDrift, error) {
	const query = `SELECT s.id AS section_id, s.name AS section_name, s.occupancy,
        COUNT(e.id) FILTER (WHERE e.active) AS active_count
        FROM sections s
        LEFT JOIN enrollments e ON e.section_id = s.id
        GROUP BY s.id, s.name, s.occupancy
        HAVING s.occupancy <> COUNT(e.id) FILTER (WHERE e.active)`
	var drift []models.OccupancyDrift
	if err := r.db.SelectContext(ctx, &drift, query); err != nil {
		return nil, fmt.Errorf("list occupancy drift: %w", err)
	}
	return drift, nil
}

// ResetOccupancy overwrites the counter with the authoritative active
// enrollment count inside the caller's transaction. The row must already be
// locked via FindByIDForUpdate.
func (r *SectionRepository) ResetOccupancy(ctx context.Context, tx *sqlx.Tx, id string) error {
	const query = `UPDATE sections SET occupancy = (
            SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND active = TRUE
        ), updated_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("reset section occupancy: %w", err)
	}
	return nil
}

// Create inserts a new section record.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if section.CreatedAt.IsZero() {
		section.CreatedAt = now
	}
	section.UpdatedAt = now
	const query = `INSERT INTO sections (id, career_course_id, term_id, name, max_capacity, occupancy, teacher_id, active, created_at, updated_at)
        VALUES (:id, :career_course_id, :term_id, :name, :max_capacity, :occupancy, :teacher_id, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// Update modifies a section's mutable attributes. The occupancy counter is
// deliberately excluded: it only moves through the locked admission and
// withdrawal paths.
func (r *SectionRepository) Update(ctx context.Context, section *models.Section) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sections SET name = :name, max_capacity = :max_capacity, teacher_id = :teacher_id, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}

// ExistsByName checks section name uniqueness within a career course and term.
func (r *SectionRepository) ExistsByName(ctx context.Context, careerCourseID, termID, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM sections WHERE career_course_id = $1 AND term_id = $2 AND name = $3"
	args := []interface{}{careerCourseID, termID, name}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check section name: %w", err)
	}
	return true, nil
}
