package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher hashes and verifies passwords with bcrypt.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher using bcrypt.DefaultCost when cost is 0.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

// Hash returns the bcrypt digest of plain.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	return string(bytes), err
}

// Verify compares plain with a bcrypt digest.
func (h *BcryptHasher) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

// HashPassword hashes a plain password using bcrypt.DefaultCost.
func HashPassword(password string) (string, error) {
	return NewBcryptHasher(0).Hash(password)
}

// CheckPassword compares plain password with hashed password.
func CheckPassword(plain, hashed string) bool {
	return NewBcryptHasher(0).Verify(plain, hashed)
}
