package database

import (
	"errors"
	"strings"

	"github.com/nimbuswolf/finance-api/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoUser is the development login created by Seed.
type DemoUser struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

func GetDemoUser() DemoUser {
	return DemoUser{
		FirstName: "Demo",
		LastName:  "User",
		Email:     "demo@nimbuswolf.local",
		Password:  "Demo@12345", // development only
	}
}

// Seed creates the demo user if it does not exist yet.
func Seed(db *gorm.DB, bcryptCost int) error {
	demo := GetDemoUser()

	var existing model.User
	err := db.Where("email = ?", strings.ToLower(demo.Email)).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demo.Password), bcryptCost)
	if err != nil {
		return err
	}

	return db.Create(&model.User{
		FirstName:    demo.FirstName,
		LastName:     demo.LastName,
		Email:        strings.ToLower(demo.Email),
		PasswordHash: string(hash),
		IsVerified:   true,
	}).Error
}
