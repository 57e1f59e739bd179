package model

import (
	"time"

	"gorm.io/datatypes"
)

// Option is a generic persisted option document. Each settings group
// (general, display, reports, integrations, other) is stored as a single
// JSON document keyed by name. Last write wins; writes are rare admin
// actions, not high-frequency counters.
type Option struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"uniqueIndex;not null" json:"name"`
	Value     datatypes.JSON `gorm:"type:jsonb;not null" json:"value"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName specifies the table name for Option
func (Option) TableName() string {
	return "options"
}
