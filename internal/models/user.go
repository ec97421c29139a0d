package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is a back-office operator account. Every /api route requires a
// logged-in user; there is a single role.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Email        string `gorm:"size:254;uniqueIndex;not null" json:"email"`
	FullName     string `gorm:"size:120" json:"fullName"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
}

func (User) TableName() string { return "users" }

// SetPassword hashes and stores the password.
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether plain matches the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}
