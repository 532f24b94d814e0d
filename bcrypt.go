package hirewire

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword bcrypt-hashes password. Empty passwords are rejected
// before they reach the hasher.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// ComparePasswordAndHash checks the cleartext password against the
// stored hash.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// RandomPasswordHash produces an unguessable placeholder hash for
// accounts created through social sign-in.
func RandomPasswordHash() string {
	h, err := HashPassword(uuid.NewString())
	if err != nil {
		return RandomPasswordHash()
	}
	return h
}
