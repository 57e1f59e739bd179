package model

import (
	"time"

	"gorm.io/gorm"
)

// Post statuses
const (
	PostStatusDraft   = "draft"
	PostStatusPublish = "publish"
	PostStatusPrivate = "private"
	PostStatusTrash   = "trash"
)

// Post represents a tracked content entry
type Post struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"not null" json:"title"`
	Slug      string         `gorm:"uniqueIndex;not null" json:"slug"`
	Type      string         `gorm:"type:varchar(20);default:'post';index" json:"type"` // post, page, attachment
	Status    string         `gorm:"type:varchar(20);default:'draft'" json:"status"`
	AuthorID  uint           `gorm:"index" json:"author_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}
