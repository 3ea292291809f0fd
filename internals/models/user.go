package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles form a closed set; admin accounts are seeded, never self-registered.
const (
	RoleStudent = "student"
	RoleTPO     = "tpo"
	RoleAdmin   = "admin"
)

type User struct {
	gorm.Model
	Name         string `gorm:"column:name"`
	Email        string `gorm:"column:email;uniqueIndex"`
	PasswordHash string `gorm:"column:password_hash"`
	Role         string `gorm:"column:role;index"`
	CollegeID    *uint  `gorm:"column:college_id;index"`

	// AdminSecretHash is the bcrypt hash of the super-admin shared secret.
	// Empty for student/tpo rows.
	AdminSecretHash string `gorm:"column:admin_secret_hash"`

	// OTPBlockedUntil is the credential-level lockout. While set and in the
	// future, both OTP issuance and verification are rejected. Expires lazily.
	OTPBlockedUntil *time.Time `gorm:"column:otp_blocked_until"`

	LastLoginAt *time.Time `gorm:"column:last_login_at"`
}
