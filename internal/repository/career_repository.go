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

const careerDetailColumns = `ca.id, ca.institute_id, ca.code, ca.name, ca.description, ca.duration_years, ca.modality, ca.active, ca.created_at, ca.updated_at,
        i.code AS institute_code, i.name AS institute_name`

const careerDetailJoins = `FROM careers ca
JOIN institutes i ON i.id = ca.institute_id`

// CareerRepository handles career persistence.
type CareerRepository struct {
	db *sqlx.DB
}

// NewCareerRepository constructs the repository.
func NewCareerRepository(db *sqlx.DB) *CareerRepository {
	return &CareerRepository{db: db}
}

// List returns careers matching the filter with pagination.
func (r *CareerRepository) List(ctx context.Context, filter models.CareerFilter) ([]models.CareerDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.InstituteID != "" {
		conditions = append(conditions, fmt.Sprintf("ca.institute_id = $%d", len(args)+1))
		args = append(args, filter.InstituteID)
	}
	if filter.Modality != "" {
		conditions = append(conditions, fmt.Sprintf("ca.modality = $%d", len(args)+1))
		args = append(args, filter.Modality)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(ca.name ILIKE $%d OR ca.code ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("ca.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"code":       "ca.code",
		"name":       "ca.name",
		"created_at": "ca.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "ca.code"
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

	query := fmt.Sprintf(`SELECT %s %s%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		careerDetailColumns, careerDetailJoins, clause, orderBy, order, size, offset)

	var careers []models.CareerDetail
	if err := r.db.SelectContext(ctx, &careers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list careers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", careerDetailJoins, clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count careers: %w", err)
	}
	return careers, total, nil
}

// FindByID loads a career by identifier.
func (r *CareerRepository) FindByID(ctx context.Context, id string) (*models.Career, error) {
	const query = `SELECT id, institute_id, code, name, description, duration_years, modality, active, created_at, updated_at FROM careers WHERE id = $1`
	var career models.Career
	if err := r.db.GetContext(ctx, &career, query, id); err != nil {
		return nil, err
	}
	return &career, nil
}

// FindDetailByID loads a career with institute context.
func (r *CareerRepository) FindDetailByID(ctx context.Context, id string) (*models.CareerDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE ca.id = $1`, careerDetailColumns, careerDetailJoins)
	var career models.CareerDetail
	if err := r.db.GetContext(ctx, &career, query, id); err != nil {
		return nil, err
	}
	return &career, nil
}

// ExistsByCode checks code uniqueness, excluding a given id on update.
func (r *CareerRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	const query = `SELECT 1 FROM careers WHERE code = $1 AND id <> $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, code, excludeID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check career code: %w", err)
	}
	return true, nil
}

// Create inserts a new career.
func (r *CareerRepository) Create(ctx context.Context, career *models.Career) error {
	if career.ID == "" {
		career.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if career.CreatedAt.IsZero() {
		career.CreatedAt = now
	}
	career.UpdatedAt = now
	const query = `INSERT INTO careers (id, institute_id, code, name, description, duration_years, modality, active, created_at, updated_at)
        VALUES (:id, :institute_id, :code, :name, :description, :duration_years, :modality, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, career); err != nil {
		return fmt.Errorf("create career: %w", err)
	}
	return nil
}

// Update modifies an existing career.
func (r *CareerRepository) Update(ctx context.Context, career *models.Career) error {
	career.UpdatedAt = time.Now().UTC()
	const query = `UPDATE careers SET institute_id = :institute_id, code = :code, name = :name, description = :description,
        duration_years = :duration_years, modality = :modality, active = :active, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, career)
	if err != nil {
		return fmt.Errorf("update career: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update career rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a career.
func (r *CareerRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM careers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete career: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete career rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
