package models

import (
	"time"

	"gorm.io/gorm"
)

// Attempt is one student's timed instance of an exam. SubmittedAt is set at
// most once, by a conditional update (WHERE submitted_at IS NULL); that single
// write is what makes every duplicate submission a no-op. The partial unique
// index allows at most one open attempt per (exam, student); racing starts
// conflict at the database instead of forking a second open row.
type Attempt struct {
	gorm.Model
	ExamID    uint      `gorm:"column:exam_id;index;uniqueIndex:idx_attempts_open,where:submitted_at IS NULL"`
	StudentID uint      `gorm:"column:student_id;index;uniqueIndex:idx_attempts_open"`
	StartedAt time.Time `gorm:"column:started_at"`

	SubmittedAt       *time.Time `gorm:"column:submitted_at"`
	Score             int        `gorm:"column:score"`
	SubmitCause       string     `gorm:"column:submit_cause"`       // manual | timeout | termination
	TerminationReason string     `gorm:"column:termination_reason"` // empty unless force-submitted
}
