package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	enrollmentSuffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	enrollmentSuffixLength   = 8
)

// IDGenerator produces an enrollment identifier for a program short code at a moment in time.
type IDGenerator func(shortCode string, at time.Time) (string, error)

// NewEnrollmentID returns "{short_code}/{year}/{8 random alphanumerics}".
func NewEnrollmentID(shortCode string, at time.Time) (string, error) {
	suffix, err := randomString(enrollmentSuffixLength)
	if err != nil {
		return "", fmt.Errorf("generate enrollment id: %w", err)
	}
	return fmt.Sprintf("%s/%04d/%s", shortCode, at.UTC().Year(), suffix), nil
}

func randomString(n int) (string, error) {
	max := big.NewInt(int64(len(enrollmentSuffixAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = enrollmentSuffixAlphabet[idx.Int64()]
	}
	return string(out), nil
}
