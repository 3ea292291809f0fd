package otp

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/odeyarrenukaradhya/placement-support/internals/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.LoginOTP{}))
	return db
}

func newTestStore(t *testing.T) (*Store, *fakeClock, *models.User) {
	t.Helper()
	db := newTestDB(t)
	clock := &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}

	store := NewStore(db)
	store.Now = clock.Now

	user := &models.User{
		Name:         "Asha",
		Email:        "asha@example.edu",
		PasswordHash: "irrelevant",
		Role:         models.RoleStudent,
	}
	require.NoError(t, db.Create(user).Error)

	return store, clock, user
}

func reloadUser(t *testing.T, store *Store, id uint) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, store.DB.First(&user, id).Error)
	return &user
}

func TestIssueAndVerify(t *testing.T) {
	store, _, user := newTestStore(t)

	issued, err := store.Issue(user, models.OTPPurposeLogin)
	require.NoError(t, err)
	assert.Len(t, issued.Plaintext, 6)
	assert.NotEmpty(t, issued.CodeRef)

	userID, err := store.Verify(issued.CodeRef, issued.Plaintext, models.OTPPurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestVerifyConsumesCodeExactlyOnce(t *testing.T) {
	store, _, user := newTestStore(t)

	issued, err := store.Issue(user, models.OTPPurposeLogin)
	require.NoError(t, err)

	_, err = store.Verify(issued.CodeRef, issued.Plaintext, models.OTPPurposeLogin)
	require.NoError(t, err)

	// The same correct code fails the second time.
	_, err = store.Verify(issued.CodeRef, issued.Plaintext, models.OTPPurposeLogin)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestIssueSupersedesOlderCodes(t *testing.T) {
	store, _, user := newTestStore(t)

	first, err := store.Issue(user, models.OTPPurposeLogin)
	require.NoError(t, err)
	second, err := store.Issue(user, models.OTPPurposeLogin)
	require.NoError(t, err)

	_, err = store.Verify(first.CodeRef, first.Plaintext, models.OTPPurposeLogin)
	assert.ErrorIs(t, err, ErrInvalidOrExpired, "superseded code must not verify")

	_, err = store.Verify(second.CodeRef, second.Plaintext, models.OTPPurposeLogin)
	assert.NoError(t, err)
}

func TestVerifyRejectsExpiredCode(t *testing.T) {
	store, clock, user := newTestStore(t)

	issued, err := store.Issue(user, models.OTPPurposeLogin)
	require.NoError(t, err)

	clock.Advance(store.LoginTTL + time.Second)

	_, err = store.Verify(issued.CodeRef, issued.Plaintext, models.OTPPurposeLogin)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestVerifyRejectsWrongPurpose(t *testing.T) {
	store, _, user := newTestStore(t)

	issued, err := store.Issue(user, models.OTPPurposeReset)
	require.NoError(t, err)

	_, err = store.Verify(issued.CodeRef, issued.Plaintext, models.OTPPurposeLogin)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}

func TestLockoutAfterThreeWrongAttempts(t *testing.T) {
	store, clock, user := newTestStore(t)

	issued, err := store.Issue(user, models.OTPPurposeLogin)
	require.NoError(t, err)

	bad := wrongCode(issued.Plaintext)

	_, err = store.Verify(issued.CodeRef, bad, models.OTPPurposeLogin)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
	_, err = store.Verify(issued.CodeRef, bad, models.OTPPurposeLogin)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)

	// The third wrong attempt crosses the bound and sets the lock.
	_, err = store.Verify(issued.CodeRef, bad, models.OTPPurposeLogin)
	var tooMany *TooManyAttemptsError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, 900, RetryAfterSeconds(tooMany.RetryAfter))

	// The fourth attempt fails with Locked even with the correct code.
	_, err = store.Verify(issued.CodeRef, issued.Plaintext, models.OTPPurposeLogin)
	var locked *LockedError
	require.ErrorAs(t, err, &locked)
	first := RetryAfterSeconds(locked.RetryAfter)

	// The lock blocks fresh issuance too, so a caller cannot reset their
	// attempt budget by requesting a new code.
	_, err = store.Issue(reloadUser(t, store, user.ID), models.OTPPurposeLogin)
	require.ErrorAs(t, err, &locked)

	// retry_after is non-increasing as real time advances.
	clock.Advance(5 * time.Minute)
	_, err = store.Issue(reloadUser(t, store, user.ID), models.OTPPurposeLogin)
	require.ErrorAs(t, err, &locked)
	assert.LessOrEqual(t, RetryAfterSeconds(locked.RetryAfter), first)
}

func TestLockExpiresLazily(t *testing.T) {
	store, clock, user := newTestStore(t)

	issued, err := store.Issue(user, models.OTPPurposeLogin)
	require.NoError(t, err)

	bad := wrongCode(issued.Plaintext)
	for i := 0; i < 3; i++ {
		_, err = store.Verify(issued.CodeRef, bad, models.OTPPurposeLogin)
		require.Error(t, err)
	}

	// Past the lock window the lock is treated as absent: a freshly issued
	// code verifies successfully with no unlock step.
	clock.Advance(store.Policy.LockFor + time.Second)

	fresh, err := store.Issue(reloadUser(t, store, user.ID), models.OTPPurposeLogin)
	require.NoError(t, err)

	userID, err := store.Verify(fresh.CodeRef, fresh.Plaintext, models.OTPPurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	// Successful verification clears the lockout state entirely.
	assert.Nil(t, reloadUser(t, store, user.ID).OTPBlockedUntil)
}

func TestVerifyUnknownCodeRef(t *testing.T) {
	store, _, _ := newTestStore(t)

	_, err := store.Verify("no-such-ref", "123456", models.OTPPurposeLogin)
	assert.True(t, errors.Is(err, ErrInvalidOrExpired))
}
