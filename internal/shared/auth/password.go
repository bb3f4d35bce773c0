package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// PasswordCost is the bcrypt work factor for stored password hashes.
	PasswordCost = 10
	// MaxPasswordBytes is bcrypt's input limit. It counts bytes, not characters.
	MaxPasswordBytes = 72
)

// dummyHash is compared against when no account matches so failed logins take similar time.
var dummyHash = mustHash("not-a-real-password")

// HashPassword returns a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash. An empty hash burns a comparison
// against a dummy hash and returns false.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// IsHashTooLong reports bcrypt's 72-byte input limit.
func IsHashTooLong(err error) bool {
	return errors.Is(err, bcrypt.ErrPasswordTooLong)
}

func mustHash(password string) []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		panic(err)
	}
	return hash
}
