package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"math/big"
	"strings"
)

const resetTokenSize = 32

// NewOTP returns a numeric one-time code of the given length, drawn from
// crypto/rand one digit at a time to avoid modulo bias.
func NewOTP(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}

// NewResetToken returns a 256-bit random token, base64url without padding.
// The token value itself is the storage key; it must not be guessable.
func NewResetToken() (string, error) {
	var raw [resetTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// HashOTP returns the SHA-256 digest of an OTP. Stores keep the digest, not
// the plaintext.
func HashOTP(otp string) []byte {
	sum := sha256.Sum256([]byte(otp))
	return sum[:]
}

// OTPEqual compares a stored digest against the digest of a provided code
// in constant time.
func OTPEqual(storedHash []byte, otp string) bool {
	return subtle.ConstantTimeCompare(storedHash, HashOTP(otp)) == 1
}

// IsNumeric reports whether v consists only of ASCII digits.
func IsNumeric(v string) bool {
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	return true
}
