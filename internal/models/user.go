// internal/models/user.go
package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Email             string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash      string     `json:"-" gorm:"size:255;not null"`
	FirstName         string     `json:"first_name" gorm:"size:150"`
	LastName          string     `json:"last_name" gorm:"size:150"`
	PublicDisplayName string     `json:"public_display_name,omitempty" gorm:"size:255"`
	Phone             string     `json:"phone,omitempty" gorm:"size:20"`
	UserType          UserType   `json:"user_type" gorm:"type:varchar(20);not null"`
	Status            UserStatus `json:"status" gorm:"type:varchar(20);default:'active'"`
	LastLoginAt       *time.Time `json:"last_login_at"`

	// Relationships
	Addresses []Address `json:"addresses,omitempty" gorm:"foreignKey:UserID"`
	Companies []Company `json:"companies,omitempty" gorm:"foreignKey:OwnerID"`
	Orders    []Order   `json:"orders,omitempty" gorm:"foreignKey:UserID"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

// DisplayName is the name shown for a producer in snapshots and reporting.
// Falls back to "First Last", then to the email.
func (u *User) DisplayName() string {
	if u.PublicDisplayName != "" {
		return u.PublicDisplayName
	}
	full := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if full != "" {
		return full
	}
	return u.Email
}
