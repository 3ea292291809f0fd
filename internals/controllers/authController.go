package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/odeyarrenukaradhya/placement-support/internals/models"
	"github.com/odeyarrenukaradhya/placement-support/internals/otp"
	"github.com/odeyarrenukaradhya/placement-support/internals/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// OTPMailer delivers one-time codes. Satisfied by *utils.EmailManager.
type OTPMailer interface {
	SendLoginOTP(toEmail string, code string, expMinutes int) error
	SendPasswordResetOTP(toEmail string, code string, expMinutes int) error
}

type AuthController struct {
	DB           *gorm.DB
	Mailer       OTPMailer
	TokenManager *utils.TokenManager
	OTPStore     *otp.Store
}

func NewAuthController(db *gorm.DB, mailer OTPMailer, tokenManager *utils.TokenManager, otpStore *otp.Store) *AuthController {
	return &AuthController{
		DB:           db,
		Mailer:       mailer,
		TokenManager: tokenManager,
		OTPStore:     otpStore,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// respondOTPError translates the OTP store's typed errors into tagged JSON.
// Lockout responses always carry retry_after_seconds so a client can render a
// countdown; the server re-checks on every call regardless.
func respondOTPError(c *gin.Context, err error) {
	var locked *otp.LockedError
	if errors.As(err, &locked) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":               "locked",
			"retry_after_seconds": otp.RetryAfterSeconds(locked.RetryAfter),
		})
		return
	}
	var tooMany *otp.TooManyAttemptsError
	if errors.As(err, &tooMany) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":               "too_many_attempts",
			"retry_after_seconds": otp.RetryAfterSeconds(tooMany.RetryAfter),
		})
		return
	}
	if errors.Is(err, otp.ErrInvalidOrExpired) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_or_expired_code"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
}

// Signup registers a student or placement-officer account. Admin accounts are
// seeded out of band and can never be created here.
func (a *AuthController) Signup(c *gin.Context) {
	var body struct {
		Name      string `json:"name" binding:"required"`
		Email     string `json:"email" binding:"required,email"`
		Password  string `json:"password" binding:"required,min=6"`
		Role      string `json:"role" binding:"required"`
		CollegeID *uint  `json:"college_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	if body.Role != models.RoleStudent && body.Role != models.RoleTPO {
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid role for signup"})
		return
	}

	email := normalizeEmail(body.Email)

	var existing models.User
	if err := a.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), 10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		Name:         body.Name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         body.Role,
		CollegeID:    body.CollegeID,
	}
	if err := a.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": gin.H{
		"id":         user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"role":       user.Role,
		"college_id": user.CollegeID,
	}})
}

// Login validates credentials and, for the admin role, the extra shared
// secret, then issues a one-time code. Unknown email and wrong password are
// reported identically to resist account enumeration.
func (a *AuthController) Login(c *gin.Context) {
	var body struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Secret   string `json:"secret"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	var user models.User
	result := a.DB.Where("email = ?", normalizeEmail(body.Email)).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error during login"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
		return
	}

	// Extra factor for the privileged role. Failing it issues no code and
	// consumes no lockout budget.
	if user.Role == models.RoleAdmin {
		if body.Secret == "" ||
			bcrypt.CompareHashAndPassword([]byte(user.AdminSecretHash), []byte(body.Secret)) != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
	}

	issued, err := a.OTPStore.Issue(&user, models.OTPPurposeLogin)
	if err != nil {
		respondOTPError(c, err)
		return
	}

	// Send the email in a background goroutine so the response isn't slow
	go a.Mailer.SendLoginOTP(user.Email, issued.Plaintext, int(a.OTPStore.LoginTTL.Minutes()))

	c.JSON(http.StatusOK, gin.H{
		"status": "OTP_REQUIRED",
		"otp_id": issued.CodeRef,
	})
}

// VerifyOTP consumes a login code and mints the session token.
func (a *AuthController) VerifyOTP(c *gin.Context) {
	var body struct {
		OTPID string `json:"otp_id" binding:"required"`
		OTP   string `json:"otp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	userID, err := a.OTPStore.Verify(body.OTPID, body.OTP, models.OTPPurposeLogin)
	if err != nil {
		respondOTPError(c, err)
		return
	}

	var user models.User
	if err := a.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error during OTP verification"})
		return
	}

	now := time.Now()
	a.DB.Model(&user).Update("last_login_at", now)

	token, err := a.TokenManager.GenerateAccessToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":         user.ID,
			"name":       user.Name,
			"email":      user.Email,
			"role":       user.Role,
			"college_id": user.CollegeID,
		},
	})
}
