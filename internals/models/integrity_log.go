package models

import "gorm.io/gorm"

// IntegrityLog is an append-only violation record for an exam attempt.
// Rows are never mutated or deleted.
type IntegrityLog struct {
	gorm.Model
	AttemptID uint   `gorm:"column:attempt_id;index"`
	Type      string `gorm:"column:type;index"`
	Metadata  string `gorm:"column:metadata"` // free-form JSON from the client
}
