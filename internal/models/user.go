package models

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const DefaultPerPageCount = 45

// User is an analyst account
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name           string    `gorm:"size:100" json:"name"`
	Password       string    `gorm:"size:255;not null" json:"-"` // Never expose in JSON
	Admin          bool      `gorm:"default:false" json:"admin"`
	Enabled        bool      `gorm:"default:true" json:"enabled"`
	PerPageCount   int       `gorm:"default:45" json:"per_page_count"`
	FavoritesCount int       `gorm:"not null;default:0" json:"favorites_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// SetPassword hashes and sets the user password
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the provided password is correct
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// PageSize returns the user's display preference, falling back to the default
func (u *User) PageSize() int {
	if u == nil || u.PerPageCount <= 0 {
		return DefaultPerPageCount
	}
	return u.PerPageCount
}

// Custom errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserDisabled       = errors.New("account is disabled")
)
