package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/academico-sys/siu-api/internal/models"
)

// ScheduleSlotRepository handles weekly meeting slots of sections.
type ScheduleSlotRepository struct {
	db *sqlx.DB
}

// NewScheduleSlotRepository constructs the repository.
func NewScheduleSlotRepository(db *sqlx.DB) *ScheduleSlotRepository {
	return &ScheduleSlotRepository{db: db}
}

// ListBySection returns the slots of one section ordered by weekday and time.
func (r *ScheduleSlotRepository) ListBySection(ctx context.Context, sectionID string) ([]models.ScheduleSlot, error) {
	const query = `SELECT id, section_id, weekday, start_time, end_time, room, created_at
        FROM schedule_slots WHERE section_id = $1 ORDER BY weekday, start_time`
	var slots []models.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, sectionID); err != nil {
		return nil, fmt.Errorf("list schedule slots: %w", err)
	}
	return slots, nil
}

// Create inserts a slot.
func (r *ScheduleSlotRepository) Create(ctx context.Context, slot *models.ScheduleSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO schedule_slots (id, section_id, weekday, start_time, end_time, room, created_at)
        VALUES (:id, :section_id, :weekday, :start_time, :end_time, :room, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create schedule slot: %w", err)
	}
	return nil
}

// Delete removes a slot.
func (r *ScheduleSlotRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedule_slots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule slot: %w", err)
	}
	return nil
}

// DeleteBySection removes all slots of a section, used when replacing a
// section's weekly schedule in one call.
func (r *ScheduleSlotRepository) DeleteBySection(ctx context.Context, sectionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedule_slots WHERE section_id = $1`, sectionID); err != nil {
		return fmt.Errorf("delete section schedule slots: %w", err)
	}
	return nil
}
