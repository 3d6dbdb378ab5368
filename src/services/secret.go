package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// scrypt work factors. Changing N invalidates every stored hash.
const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32

	secretBytes = 32
	saltBytes   = 16
)

// GenerateSecret returns a fresh random secret as 64 hex characters
func GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateSalt returns a fresh random per-key salt as 32 hex characters.
// Salts are never reused across keys; the column carries a UNIQUE constraint.
func GenerateSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashSecret derives the stored hash from a plaintext secret and salt
func HashSecret(secret, salt string) (string, error) {
	dk, err := scrypt.Key([]byte(secret), []byte(salt), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("failed to derive key: %w", err)
	}
	return hex.EncodeToString(dk), nil
}

// VerifySecret recomputes the hash for the presented secret and compares it
// against the stored hash over the full length, so a mismatch in the first
// byte takes as long as a mismatch in the last.
func VerifySecret(secret, salt, storedHash string) (bool, error) {
	computed, err := HashSecret(secret, salt)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1, nil
}

// Last8 returns the trailing eight characters of a plaintext secret,
// retained for display only; it is never sufficient to authenticate.
func Last8(secret string) string {
	if len(secret) <= 8 {
		return secret
	}
	return secret[len(secret)-8:]
}
