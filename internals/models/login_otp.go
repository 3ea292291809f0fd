package models

import (
	"time"

	"gorm.io/gorm"
)

// OTP purposes. A reset code can never complete a login and vice versa.
const (
	OTPPurposeLogin = "login"
	OTPPurposeReset = "reset"
)

// LoginOTP is a one-time code row. Only the SHA-256 hash of the code is
// stored; the plaintext exists only in the email sent to the user. At most
// one unused, unexpired row is valid per user: issuing a fresh code marks
// every older unused row for that user as used.
type LoginOTP struct {
	gorm.Model
	UserID    uint      `gorm:"column:user_id;index"`
	CodeRef   string    `gorm:"column:code_ref;uniqueIndex"` // opaque id handed to the client
	OTPHash   string    `gorm:"column:otp_hash"`
	Purpose   string    `gorm:"column:purpose"`
	Attempts  int       `gorm:"column:attempts;default:0"`
	Used      bool      `gorm:"column:used;default:false"`
	ExpiresAt time.Time `gorm:"column:expires_at;index"`
}
