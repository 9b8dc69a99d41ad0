package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = bcrypt.DefaultCost

// Password length limits. bcrypt ignores input past 72 bytes.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// dummyHash is compared against when no account matches, so an unknown
// email costs the same as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcryptCost)

// HashPassword returns a salted bcrypt hash of plaintext.
func HashPassword(plaintext string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
}

// CheckPassword reports whether plaintext matches hash. A nil hash is
// checked against a dummy hash and always fails.
func CheckPassword(hash []byte, plaintext string) (bool, error) {
	if hash == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plaintext))
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword(hash, []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
