package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// GenerateOTPCode returns a 6-digit numeric code using crypto/rand.
func GenerateOTPCode() string {
	max := big.NewInt(1000000)
	n, _ := rand.Int(rand.Reader, max)
	return fmt.Sprintf("%06d", n.Int64())
}

// HashOTPCode hashes a code with SHA-256. Safe for short-lived secrets; only
// the hash is ever stored, so a leaked OTP table yields no usable codes.
func HashOTPCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
