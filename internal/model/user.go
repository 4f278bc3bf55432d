package model

import (
	"time"

	"github.com/crudkit/sampleapi/internal/currentuser"
)

type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"size:254" json:"email"`
	PasswordHash string     `gorm:"size:100;not null" json:"-"`
	IsStaff      bool       `gorm:"default:false" json:"is_staff"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	DateJoined   time.Time  `gorm:"autoCreateTime" json:"date_joined"`
	LastLogin    *time.Time `json:"last_login"`
}

func (User) TableName() string {
	return "auth_users"
}

func (u *User) Principal() currentuser.Principal {
	return currentuser.Principal{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		IsStaff:       u.IsStaff,
		IsActive:      u.IsActive,
		DateJoined:    u.DateJoined,
		Authenticated: true,
	}
}
