// Package auth provides the password hashing primitive consumed by
// the data-access layer. Digests are bcrypt; callers treat them as
// opaque strings.
package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a digest from a plaintext password
func HashPassword(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// VerifyPassword reports whether the plaintext matches the digest
func VerifyPassword(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
