package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const minHashSaltLength = 32

var hashSalt string

// InitHashSalt loads the salt used for privacy-preserving identifier
// hashes from LOG_HASH_SALT. It panics when the salt is missing or too
// short, since logging raw identifiers is worse than refusing to start.
func InitHashSalt() {
	salt := os.Getenv("LOG_HASH_SALT")
	if salt == "" {
		panic("LOG_HASH_SALT environment variable is required")
	}
	if len(salt) < minHashSaltLength {
		panic(fmt.Sprintf("LOG_HASH_SALT must be at least %d characters", minHashSaltLength))
	}
	hashSalt = salt
}

// InitHashSaltForTesting sets the salt directly, bypassing the
// environment. Only for use in tests.
func InitHashSaltForTesting(salt string) {
	hashSalt = salt
}

func saltedHash(data string) string {
	hash := sha256.Sum256([]byte(data + ":" + hashSalt))
	// First 8 characters are plenty for correlating log lines.
	return hex.EncodeToString(hash[:])[:8]
}

// HashUserID creates a privacy-preserving hash of an account ID.
// This allows tracing a user's actions across log lines without
// exposing the actual ID.
func HashUserID(userID int64) string {
	return saltedHash(fmt.Sprintf("%d", userID))
}

// HashChatID creates a privacy-preserving hash of a Telegram chat ID.
func HashChatID(chatID int64) string {
	return saltedHash(fmt.Sprintf("%d", chatID))
}

// HashEmail creates a privacy-preserving hash of an email address.
// Addresses are lowercased first so the hash survives case changes at
// sign-in.
func HashEmail(email string) string {
	return saltedHash(strings.ToLower(strings.TrimSpace(email)))
}

// SanitizeDescription redacts a free-text expense description while
// preserving length information for debugging.
func SanitizeDescription(desc string) string {
	if desc == "" {
		return "<empty>"
	}
	return fmt.Sprintf("<redacted: %d words, %d chars>", len(strings.Fields(desc)), len(desc))
}

// SanitizeText is a general-purpose sanitizer for any user-provided text.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}
	if len(text) <= 10 {
		return fmt.Sprintf("<%d chars>", len(text))
	}
	return fmt.Sprintf("%s...<%d chars>", text[:3], len(text))
}
