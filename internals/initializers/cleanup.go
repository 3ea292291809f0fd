package initializers

import (
	"log"
	"time"

	"github.com/odeyarrenukaradhya/placement-support/internals/config"
	"github.com/odeyarrenukaradhya/placement-support/internals/models"

	"gorm.io/gorm"
)

// StartOTPCleanup runs the OTP reaper once immediately and then on a fixed
// interval (12 hours by default). The sweep is pure garbage collection: it
// never touches a row that an active flow could still verify.
func StartOTPCleanup() {
	cleanupInterval := config.GetEnvAsInt("OTP_CLEANUP_INTERVAL_HOURS", 12, true)
	ticker := time.NewTicker(time.Duration(cleanupInterval) * time.Hour)

	runOTPSweep()

	go func() {
		for range ticker.C {
			runOTPSweep()
		}
	}()

	log.Printf("OTP cleanup: scheduler started, running every %d hours", cleanupInterval)
}

func runOTPSweep() {
	deleted, err := reapExpiredOTPs(DB, time.Now())
	if err != nil {
		log.Printf("OTP cleanup: sweep failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("OTP cleanup: deleted %d expired/old OTP records", deleted)
	} else {
		log.Printf("OTP cleanup: no expired OTP records found")
	}
}

// reapExpiredOTPs hard-deletes code rows that no flow can still verify: rows
// past their expiry, used rows older than 24h, and any row older than 24h
// regardless of status. Unscoped() bypasses GORM's soft delete so the table
// does not grow indefinitely.
func reapExpiredOTPs(db *gorm.DB, now time.Time) (int64, error) {
	cutoff := now.Add(-24 * time.Hour)

	result := db.Unscoped().
		Where("expires_at < ?", now).
		Or("used = ? AND created_at < ?", true, cutoff).
		Or("created_at < ?", cutoff).
		Delete(&models.LoginOTP{})

	return result.RowsAffected, result.Error
}
