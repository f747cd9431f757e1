// Package auth hashes and verifies passwords.
//
// The current scheme is scrypt. Its stored form is hex(key) + ":" + hex(salt).
// The legacy scheme is bcrypt, recognized by its "$2" prefix. Verify accepts
// both; Hash always produces the current scheme. Callers should re-hash after
// a successful verification of a legacy value, see NeedsRehash.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/scrypt"
)

const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 16
	delimiter    = ":"
)

// Hash derives the stored form of a password under the current scheme.
func Hash(password string) (string, error) {

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(key) + delimiter + hex.EncodeToString(salt), nil
}

// Verify reports whether the password matches the stored value, under
// whichever scheme the stored value uses. A malformed stored value verifies
// as false, it never fails.
func Verify(password, stored string) bool {

	if isLegacy(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}

	i := strings.Index(stored, delimiter)
	if i <= 0 {
		return false
	}

	key, err := hex.DecodeString(stored[:i])
	if err != nil || len(key) == 0 {
		return false
	}

	salt, err := hex.DecodeString(stored[i+len(delimiter):])
	if err != nil || len(salt) == 0 {
		return false
	}

	candidate, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, len(key))
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(candidate, key) == 1
}

// NeedsRehash reports whether the stored value uses the legacy scheme.
func NeedsRehash(stored string) bool {
	return isLegacy(stored)
}

func isLegacy(stored string) bool {
	return strings.HasPrefix(stored, "$2")
}

// LegacyHash derives the stored form of a password under the legacy scheme.
// New code must not call it, it exists for importing old credential dumps.
func LegacyHash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
