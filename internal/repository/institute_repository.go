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

// InstituteRepository handles institute persistence.
type InstituteRepository struct {
	db *sqlx.DB
}

// NewInstituteRepository constructs the repository.
func NewInstituteRepository(db *sqlx.DB) *InstituteRepository {
	return &InstituteRepository{db: db}
}

// List returns institutes matching the filter with pagination.
func (r *InstituteRepository) List(ctx context.Context, filter models.InstituteFilter) ([]models.Institute, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR code ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"code":       "code",
		"name":       "name",
		"created_at": "created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "code"
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

	query := fmt.Sprintf(`SELECT id, code, name, description, active, created_at, updated_at
        FROM institutes%s ORDER BY %s %s LIMIT %d OFFSET %d`, clause, orderBy, order, size, offset)

	var institutes []models.Institute
	if err := r.db.SelectContext(ctx, &institutes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list institutes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM institutes%s", clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count institutes: %w", err)
	}
	return institutes, total, nil
}

// FindByID loads an institute by identifier.
func (r *InstituteRepository) FindByID(ctx context.Context, id string) (*models.Institute, error) {
	const query = `SELECT id, code, name, description, active, created_at, updated_at FROM institutes WHERE id = $1`
	var institute models.Institute
	if err := r.db.GetContext(ctx, &institute, query, id); err != nil {
		return nil, err
	}
	return &institute, nil
}

// ExistsByCode checks code uniqueness, excluding a given id on update.
func (r *InstituteRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	const query = `SELECT 1 FROM institutes WHERE code = $1 AND id <> $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, code, excludeID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check institute code: %w", err)
	}
	return true, nil
}

// Create inserts a new institute.
func (r *InstituteRepository) Create(ctx context.Context, institute *models.Institute) error {
	if institute.ID == "" {
		institute.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if institute.CreatedAt.IsZero() {
		institute.CreatedAt = now
	}
	institute.UpdatedAt = now
	const query = `INSERT INTO institutes (id, code, name, description, active, created_at, updated_at)
        VALUES (:id, :code, :name, :description, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, institute); err != nil {
		return fmt.Errorf("create institute: %w", err)
	}
	return nil
}

// Update modifies an existing institute.
func (r *InstituteRepository) Update(ctx context.Context, institute *models.Institute) error {
	institute.UpdatedAt = time.Now().UTC()
	const query = `UPDATE institutes SET code = :code, name = :name, description = :description, active = :active, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, institute)
	if err != nil {
		return fmt.Errorf("update institute: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update institute rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an institute.
func (r *InstituteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM institutes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete institute: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete institute rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
