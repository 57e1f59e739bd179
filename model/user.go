package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents an admin panel user. The "admin" role carries the
// manage capability required by the settings pipeline.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Name         string         `json:"name"`
	Role         string         `gorm:"type:varchar(20);default:'editor'" json:"role"` // admin, editor
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user holds the manage capability
func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}
