package utils

import (
	"errors"
	"time"

	"github.com/odeyarrenukaradhya/placement-support/internals/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const resetPurpose = "reset_password"

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrWrongPurpose is returned when a token is structurally valid but was
	// minted for a different flow (e.g. an access token used as a reset token).
	ErrWrongPurpose = errors.New("invalid token purpose")
)

// TokenManager handles signing and parsing of access and reset tokens.
// Access tokens live for hours; reset tokens are single-purpose and live for
// minutes, tagged with a purpose claim that ResetSecret checks exactly.
type TokenManager struct {
	// JWTSecret is the secret key used for signing tokens
	JWTSecret string
	// AccessTTL is the lifetime of access tokens
	AccessTTL time.Duration
	// ResetTTL is the lifetime of password-reset tokens
	ResetTTL time.Duration
}

// NewTokenManager initializes and returns a new TokenManager instance
func NewTokenManager(jwtSecret string, accessTTL, resetTTL time.Duration) *TokenManager {
	return &TokenManager{
		JWTSecret: jwtSecret,
		AccessTTL: accessTTL,
		ResetTTL:  resetTTL,
	}
}

// AccessClaims is the decoded identity carried by an access token.
type AccessClaims struct {
	UserID    uint
	Role      string
	CollegeID *uint
}

// GenerateAccessToken mints a signed session token carrying the subject id,
// role and owning college.
func (tm *TokenManager) GenerateAccessToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":  float64(user.ID),
		"role": user.Role,
		"jti":  uuid.New().String(),
		"exp":  time.Now().Add(tm.AccessTTL).Unix(),
	}
	if user.CollegeID != nil {
		claims["college_id"] = float64(*user.CollegeID)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(tm.JWTSecret))
}

// GenerateResetToken mints a short-lived token that only the set-new-password
// operation accepts.
func (tm *TokenManager) GenerateResetToken(userID uint) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     float64(userID),
		"purpose": resetPurpose,
		"exp":     time.Now().Add(tm.ResetTTL).Unix(),
	})
	return token.SignedString([]byte(tm.JWTSecret))
}

func (tm *TokenManager) parse(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(tm.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseAccessToken validates an access token and returns its identity claims.
func (tm *TokenManager) ParseAccessToken(tokenStr string) (*AccessClaims, error) {
	claims, err := tm.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if _, tagged := claims["purpose"]; tagged {
		// Reset tokens must never pass the auth middleware.
		return nil, ErrWrongPurpose
	}

	sub, ok := claims["sub"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}
	role, _ := claims["role"].(string)

	ac := &AccessClaims{UserID: uint(sub), Role: role}
	if collegeID, ok := claims["college_id"].(float64); ok {
		id := uint(collegeID)
		ac.CollegeID = &id
	}
	return ac, nil
}

// ParseResetToken validates a reset token, rejecting any token whose purpose
// tag does not match exactly, and returns the subject user id.
func (tm *TokenManager) ParseResetToken(tokenStr string) (uint, error) {
	claims, err := tm.parse(tokenStr)
	if err != nil {
		return 0, err
	}
	if purpose, _ := claims["purpose"].(string); purpose != resetPurpose {
		return 0, ErrWrongPurpose
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, ErrInvalidToken
	}
	return uint(sub), nil
}
