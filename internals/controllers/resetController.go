package controllers

import (
	"errors"
	"net/http"

	"github.com/odeyarrenukaradhya/placement-support/internals/models"
	"github.com/odeyarrenukaradhya/placement-support/internals/otp"
	"github.com/odeyarrenukaradhya/placement-support/internals/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type ResetController struct {
	DB           *gorm.DB
	Mailer       OTPMailer
	TokenManager *utils.TokenManager
	OTPStore     *otp.Store
}

func NewResetController(db *gorm.DB, mailer OTPMailer, tokenManager *utils.TokenManager, otpStore *otp.Store) *ResetController {
	return &ResetController{
		DB:           db,
		Mailer:       mailer,
		TokenManager: tokenManager,
		OTPStore:     otpStore,
	}
}

// RequestPasswordReset issues a reset code. Unknown emails still get a 200
// with a simulated otp_id so the response does not reveal which accounts
// exist; the later verification simply fails because the id matches no row.
func (r *ResetController) RequestPasswordReset(c *gin.Context) {
	var body struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}

	var user models.User
	err := r.DB.Where("email = ?", normalizeEmail(body.Email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{"message": "If account exists, OTP sent", "otp_id": "simulation"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	issued, err := r.OTPStore.Issue(&user, models.OTPPurposeReset)
	if err != nil {
		respondOTPError(c, err)
		return
	}

	go r.Mailer.SendPasswordResetOTP(user.Email, issued.Plaintext, int(r.OTPStore.ResetTTL.Minutes()))

	c.JSON(http.StatusOK, gin.H{"message": "OTP sent", "otp_id": issued.CodeRef})
}

// VerifyResetOTP consumes a reset code and mints the short-lived,
// single-purpose reset token.
func (r *ResetController) VerifyResetOTP(c *gin.Context) {
	var body struct {
		OTPID string `json:"otp_id" binding:"required"`
		OTP   string `json:"otp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	userID, err := r.OTPStore.Verify(body.OTPID, body.OTP, models.OTPPurposeReset)
	if err != nil {
		respondOTPError(c, err)
		return
	}

	resetToken, err := r.TokenManager.GenerateResetToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OTP verified", "reset_token": resetToken})
}

// ResetPassword sets a new password. Only a token minted by VerifyResetOTP is
// accepted; any other purpose is rejected outright.
func (r *ResetController) ResetPassword(c *gin.Context) {
	var body struct {
		ResetToken  string `json:"reset_token" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	if len(body.NewPassword) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password too short"})
		return
	}

	userID, err := r.TokenManager.ParseResetToken(body.ResetToken)
	if err != nil {
		if errors.Is(err, utils.ErrWrongPurpose) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid token purpose"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), 10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	// A successful reset also clears any standing lockout.
	if err := r.DB.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"password_hash":     string(hash),
		"otp_blocked_until": nil,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}
