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

const studentCareerDetailColumns = `sc.id, sc.student_id, sc.career_id, sc.active, sc.start_date, sc.end_date, sc.created_at, sc.updated_at,
        st.file_number AS student_file_number, u.full_name AS student_name,
        ca.code AS career_code, ca.name AS career_name`

const studentCareerDetailJoins = `FROM student_careers sc
JOIN students st ON st.id = sc.student_id
JOIN users u ON u.id = st.user_id
JOIN careers ca ON ca.id = sc.career_id`

// StudentCareerRepository handles student career memberships.
type StudentCareerRepository struct {
	db *sqlx.DB
}

// NewStudentCareerRepository constructs the repository.
func NewStudentCareerRepository(db *sqlx.DB) *StudentCareerRepository {
	return &StudentCareerRepository{db: db}
}

// List returns student career memberships with pagination.
func (r *StudentCareerRepository) List(ctx context.Context, filter models.StudentCareerFilter) ([]models.StudentCareerDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("sc.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CareerID != "" {
		conditions = append(conditions, fmt.Sprintf("sc.career_id = $%d", len(args)+1))
		args = append(args, filter.CareerID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("sc.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"start_date":   "sc.start_date",
		"student_name": "student_name",
		"career_code":  "ca.code",
		"created_at":   "sc.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "sc.start_date"
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

	query := fmt.Sprintf(`SELECT %s %s%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		studentCareerDetailColumns, studentCareerDetailJoins, clause, orderBy, order, size, offset)

	var memberships []models.StudentCareerDetail
	if err := r.db.SelectContext(ctx, &memberships, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list student careers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", studentCareerDetailJoins, clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count student careers: %w", err)
	}
	return memberships, total, nil
}

// FindByID loads a membership by identifier.
func (r *StudentCareerRepository) FindByID(ctx context.Context, id string) (*models.StudentCareer, error) {
	const query = `SELECT id, student_id, career_id, active, start_date, end_date, created_at, updated_at FROM student_careers WHERE id = $1`
	var membership models.StudentCareer
	if err := r.db.GetContext(ctx, &membership, query, id); err != nil {
		return nil, err
	}
	return &membership, nil
}

// FindDetailByID loads a membership with student and career info attached.
func (r *StudentCareerRepository) FindDetailByID(ctx context.Context, id string) (*models.StudentCareerDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE sc.id = $1`, studentCareerDetailColumns, studentCareerDetailJoins)
	var membership models.StudentCareerDetail
	if err := r.db.GetContext(ctx, &membership, query, id); err != nil {
		return nil, err
	}
	return &membership, nil
}

// ExistsActiveByStudent reports whether the student already carries an
// active membership.
func (r *StudentCareerRepository) ExistsActiveByStudent(ctx context.Context, studentID string) (bool, error) {
	const query = `SELECT 1 FROM student_careers WHERE student_id = $1 AND active = TRUE LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active student career: %w", err)
	}
	return true, nil
}

// Create inserts a new membership.
func (r *StudentCareerRepository) Create(ctx context.Context, membership *models.StudentCareer) error {
	if membership.ID == "" {
		membership.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if membership.CreatedAt.IsZero() {
		membership.CreatedAt = now
	}
	membership.UpdatedAt = now
	const query = `INSERT INTO student_careers (id, student_id, career_id, active, start_date, end_date, created_at, updated_at)
        VALUES (:id, :student_id, :career_id, :active, :start_date, :end_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, membership); err != nil {
		return fmt.Errorf("create student career: %w", err)
	}
	return nil
}

// SetActive flips the active flag; deactivation stamps the end date.
func (r *StudentCareerRepository) SetActive(ctx context.Context, id string, active bool) error {
	now := time.Now().UTC()
	var query string
	if active {
		query = `UPDATE student_careers SET active = TRUE, end_date = NULL, updated_at = $2 WHERE id = $1`
	} else {
		query = `UPDATE student_careers SET active = FALSE, end_date = $2, updated_at = $2 WHERE id = $1`
	}
	result, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("set student career active: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set student career active rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
