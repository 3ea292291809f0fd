package otp

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/odeyarrenukaradhya/placement-support/internals/models"
	"github.com/odeyarrenukaradhya/placement-support/internals/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store persists one-time codes and enforces the lockout policy around them.
// The clock is injectable so lockout expiry can be tested without sleeping.
type Store struct {
	DB     *gorm.DB
	Policy LockoutPolicy
	Now    func() time.Time

	// Per-purpose code lifetimes
	LoginTTL time.Duration
	ResetTTL time.Duration
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		DB:       db,
		Policy:   DefaultLockoutPolicy(),
		Now:      time.Now,
		LoginTTL: 5 * time.Minute,
		ResetTTL: 10 * time.Minute,
	}
}

// IssuedCode is the result of Issue. Plaintext leaves the process only inside
// the email to the user; the store keeps the hash.
type IssuedCode struct {
	CodeRef   string
	Plaintext string
	ExpiresAt time.Time
}

func (s *Store) ttl(purpose string) time.Duration {
	if purpose == models.OTPPurposeReset {
		return s.ResetTTL
	}
	return s.LoginTTL
}

// Issue generates a fresh 6-digit code for the user. The lockout check runs
// first, before any write. Issuing eagerly supersedes every older unused code
// for the same user, so at most one code is ever verifiable at a time.
func (s *Store) Issue(user *models.User, purpose string) (*IssuedCode, error) {
	now := s.Now()

	if blocked, remaining := s.Policy.Blocked(user.OTPBlockedUntil, now); blocked {
		return nil, &LockedError{RetryAfter: remaining}
	}

	code := utils.GenerateOTPCode()
	issued := &IssuedCode{
		CodeRef:   uuid.New().String(),
		Plaintext: code,
		ExpiresAt: now.Add(s.ttl(purpose)),
	}

	err := utils.WithRetry(func() error {
		return s.DB.Transaction(func(tx *gorm.DB) error {
			// Invalidate old codes before inserting the replacement.
			if err := tx.Model(&models.LoginOTP{}).
				Where("user_id = ? AND used = ?", user.ID, false).
				Update("used", true).Error; err != nil {
				return err
			}
			return tx.Create(&models.LoginOTP{
				UserID:    user.ID,
				CodeRef:   issued.CodeRef,
				OTPHash:   utils.HashOTPCode(code),
				Purpose:   purpose,
				ExpiresAt: issued.ExpiresAt,
			}).Error
		})
	})
	if err != nil {
		return nil, err
	}
	return issued, nil
}

// Verify checks a supplied code against the row identified by codeRef.
//
// On a match the row is marked used and the user's lockout state cleared in
// one transaction; re-verifying the same code always fails afterwards. On a
// mismatch the attempt counter is bumped, and the verification that crosses
// the bound locks the credential and answers TooManyAttemptsError. A missing,
// expired or used row answers the same ErrInvalidOrExpired as a wrong code.
func (s *Store) Verify(codeRef string, suppliedCode string, purpose string) (uint, error) {
	now := s.Now()

	var record models.LoginOTP
	err := utils.WithRetry(func() error {
		return s.DB.Where("code_ref = ?", codeRef).First(&record).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrInvalidOrExpired
		}
		return 0, err
	}

	var user models.User
	if err := utils.WithRetry(func() error {
		return s.DB.First(&user, record.UserID).Error
	}); err != nil {
		return 0, err
	}

	// Lockout is checked before the staleness checks so a locked credential
	// always sees Locked with its countdown, not a misleading invalid-code.
	if blocked, remaining := s.Policy.Blocked(user.OTPBlockedUntil, now); blocked {
		return 0, &LockedError{RetryAfter: remaining}
	}

	if record.Used || record.Purpose != purpose || now.After(record.ExpiresAt) {
		return 0, ErrInvalidOrExpired
	}

	supplied := []byte(utils.HashOTPCode(suppliedCode))
	if subtle.ConstantTimeCompare(supplied, []byte(record.OTPHash)) != 1 {
		newAttempts := record.Attempts + 1
		if s.Policy.ShouldLock(newAttempts) {
			blockedUntil := now.Add(s.Policy.LockFor)
			err := utils.WithRetry(func() error {
				return s.DB.Transaction(func(tx *gorm.DB) error {
					if err := tx.Model(&record).Updates(map[string]interface{}{
						"attempts": newAttempts,
						"used":     true,
					}).Error; err != nil {
						return err
					}
					return tx.Model(&user).Update("otp_blocked_until", blockedUntil).Error
				})
			})
			if err != nil {
				return 0, err
			}
			return 0, &TooManyAttemptsError{RetryAfter: s.Policy.LockFor}
		}

		if err := utils.WithRetry(func() error {
			return s.DB.Model(&record).Update("attempts", newAttempts).Error
		}); err != nil {
			return 0, err
		}
		return 0, ErrInvalidOrExpired
	}

	// Success: consume the code and clear lockout state atomically. The
	// conditional WHERE used = false makes a racing double-verify lose.
	var consumed bool
	err = utils.WithRetry(func() error {
		return s.DB.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.LoginOTP{}).
				Where("id = ? AND used = ?", record.ID, false).
				Update("used", true)
			if res.Error != nil {
				return res.Error
			}
			consumed = res.RowsAffected > 0
			if !consumed {
				return nil
			}
			return tx.Model(&user).Update("otp_blocked_until", nil).Error
		})
	})
	if err != nil {
		return 0, err
	}
	if !consumed {
		return 0, ErrInvalidOrExpired
	}

	return user.ID, nil
}
