package model

import (
	"time"
)

type User struct {
	Base
	Email        string     `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	FirstName    string     `gorm:"column:first_name"`
	LastName     string     `gorm:"column:last_name"`
	Phone        string     `gorm:"column:phone"`
	IsVerified   bool       `gorm:"column:is_verified;default:false;not null"`
	LastLogin    *time.Time `gorm:"column:last_login"`
}
