package utils

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword securely hashes a plain text password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a plain text password with a stored hash
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("no-such-user-placeholder"), bcrypt.DefaultCost)
	return h
})

// CompareDummyHash spends the same bcrypt work as CheckPasswordHash for logins
// that matched no user. It always reports false.
func CompareDummyHash(password string) bool {
	_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
	return false
}

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

var weakFragments = []string{"password", "123456", "qwerty", "letmein", "wellness"}

// ValidatePasswordPolicy enforces the password rules for self-service changes:
// at least 10 characters with lower, upper, digit and special, no common fragments,
// and none of the caller's identifying strings (username, email local part).
func ValidatePasswordPolicy(pw string, disallowContains ...string) (ok bool, reason string) {
	if len(pw) < 10 {
		return false, "password must be at least 10 characters"
	}
	if len(pw) > MaxPasswordBytes {
		return false, "password must be at most 72 bytes"
	}
	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasLower || !hasUpper || !hasDigit || !hasSpecial {
		return false, "password must include lowercase, uppercase, digit, and special character"
	}
	lower := strings.ToLower(pw)
	for _, w := range weakFragments {
		if strings.Contains(lower, w) {
			return false, "password is too common/guessable"
		}
	}
	for _, dis := range disallowContains {
		if len(dis) < 3 {
			continue
		}
		if strings.Contains(lower, strings.ToLower(dis)) {
			return false, "password must not contain personal information"
		}
	}
	return true, ""
}
