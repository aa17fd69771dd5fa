package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrMismatchedPassword is returned when a password does not match its hash
var ErrMismatchedPassword = errors.New("password does not match")

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
	hashPrefix   = "argon2id"
)

// Argon2Hasher hashes passwords with salted Argon2id. The encoded form is
// "argon2id$<salt>$<hash>" with both parts base64 encoded.
type Argon2Hasher struct{}

// NewArgon2Hasher creates a password hasher
func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{}
}

// Hash generates a salted hash of password
func (Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return strings.Join([]string{
		hashPrefix,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(hash),
	}, "$"), nil
}

// Compare checks password against an encoded hash
func (Argon2Hasher) Compare(encoded, password string) error {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[0] != hashPrefix {
		return fmt.Errorf("unsupported password hash format")
	}

	salt, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return fmt.Errorf("failed to decode salt: %w", err)
	}
	want, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return fmt.Errorf("failed to decode hash: %w", err)
	}

	got := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, uint32(len(want)))
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrMismatchedPassword
	}
	return nil
}
