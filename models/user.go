package models

import (
	"time"
)

const (
	RoleAdmin    = "ADMIN"
	RoleAuthor   = "AUTHOR"
	RoleReviewer = "REVIEWER"
	RoleEditor   = "EDITOR"
)

// Roles lists every role a user may hold.
var Roles = []string{RoleAdmin, RoleAuthor, RoleReviewer, RoleEditor}

// IsValidRole reports whether role is one of the fixed roles.
func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	UserID   uint       `gorm:"primaryKey;column:user_id" json:"user_id"`
	Name     string     `gorm:"column:name;size:120" json:"name"`
	Email    string     `gorm:"column:email;size:191;uniqueIndex" json:"email"`
	Password string     `gorm:"column:password" json:"-"`
	Role     string     `gorm:"column:role;size:20;index" json:"role"`
	IsActive bool       `gorm:"column:is_active" json:"is_active"`
	CreateAt time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt *time.Time `gorm:"column:update_at" json:"update_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}
