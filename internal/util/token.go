package util

import (
	"strings"

	"github.com/google/uuid"
)

const TokenLength = 32

// GenerateToken returns an unguessable link token: the 122 random bits of a
// v4 UUID as 32 lowercase hex characters.
func GenerateToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// ValidToken reports whether s has the shape GenerateToken produces. It says
// nothing about whether the token exists.
func ValidToken(s string) bool {
	if len(s) != TokenLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
