package models

import "time"

// ScheduleSlot is one weekly meeting of a section.
type ScheduleSlot struct {
	ID        string    `db:"id" json:"id"`
	SectionID string    `db:"section_id" json:"section_id"`
	Weekday   int       `db:"weekday" json:"weekday"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Room      string    `db:"room" json:"room,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
