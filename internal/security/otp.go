package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const otpDigits = 6

// GenerateOTP returns a random 6-digit numeric code
func GenerateOTP() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// HashOTP hashes a one-time code for storage
func HashOTP(code string) (string, error) {
	return HashPassword(code)
}

// CheckOTP compares a submitted code against its stored hash
func CheckOTP(code, hash string) bool {
	if len(code) != otpDigits {
		return false
	}
	return CheckPassword(code, hash)
}
