package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// legacyDigestLen is the length of a hex encoded, unsalted SHA-256 digest. Accounts
// imported from the previous deployment still carry such digests.
const legacyDigestLen = sha256.Size * 2

// HashPassword hashes password with bcrypt. bcrypt only reads 72 bytes, so it is fed
// the base64 SHA-256 digest of the password instead, which makes every length usable.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(preDigest(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hashed), nil
}

func preDigest(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hashed, password string) bool {
	if isLegacyDigest(hashed) {
		sum := sha256.Sum256([]byte(password))
		return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(hashed)) == 1
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), preDigest(password)) == nil
}

func isLegacyDigest(hashed string) bool {
	if len(hashed) != legacyDigestLen {
		return false
	}
	_, err := hex.DecodeString(hashed)
	return err == nil
}
