package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

// NewNumericCode returns a random code of n decimal digits, zero-padded.
// It backs SMS one-time passwords for phone login, phone verification and
// two-factor fallback codes.
func NewNumericCode(n int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < n; i++ {
		max.Mul(max, big.NewInt(10))
	}
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	s := v.String()
	for len(s) < n {
		s = "0" + s
	}
	return s, nil
}

// HashCode returns the SHA-256 hex digest of a one-time code.  Codes are
// stored hashed, like refresh tokens, so a leaked verification table cannot
// be replayed.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
