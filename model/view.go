package model

import (
	"time"
)

// Period bucket types for aggregated view counts
const (
	PeriodDay   = 0
	PeriodWeek  = 1
	PeriodMonth = 2
	PeriodTotal = 3
)

// PostView represents one aggregated view-count bucket for a post.
// Period strings are zero-padded (YYYYMMDD, YYYYWW, YYYYMM) so that
// lexicographic range queries match numeric ordering; the total bucket
// uses the literal period "total".
type PostView struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	PostID uint   `gorm:"not null;uniqueIndex:idx_post_views_bucket,priority:1" json:"post_id"`
	Type   int    `gorm:"not null;uniqueIndex:idx_post_views_bucket,priority:2" json:"type"`
	Period string `gorm:"type:varchar(8);not null;uniqueIndex:idx_post_views_bucket,priority:3" json:"period"`
	Count  int64  `gorm:"not null;default:0" json:"count"`
}

// TableName specifies the table name for PostView
func (PostView) TableName() string {
	return "post_views"
}

// ViewEvent is a raw view row, kept only until the retention cron prunes it.
// Aggregates in post_views are the source of truth for all queries.
type ViewEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PostID      uint      `gorm:"not null;index" json:"post_id"`
	VisitorHash string    `gorm:"type:varchar(64);index" json:"-"`
	ViewedAt    time.Time `gorm:"not null;index" json:"viewed_at"`
}

// TableName specifies the table name for ViewEvent
func (ViewEvent) TableName() string {
	return "view_events"
}
