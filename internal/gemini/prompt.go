package gemini

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// MaxDescriptionLength is the maximum allowed length for expense
// descriptions embedded in prompts.
const MaxDescriptionLength = 200

// MaxCategoryNameLength is the maximum allowed length for category names
// embedded in prompts.
const MaxCategoryNameLength = 50

// SanitizeForPrompt sanitizes user input to prevent prompt injection attacks.
// It removes or escapes characters that could break prompt structure,
// and truncates to the given maxLength.
func SanitizeForPrompt(input string, maxLength int) string {
	// Remove or escape quotes that could break prompt structure.
	input = strings.ReplaceAll(input, `"`, `'`)
	input = strings.ReplaceAll(input, "`", "'")

	// Remove null bytes and other control characters.
	input = strings.ReplaceAll(input, "\x00", "")

	// Normalize whitespace: splits on any whitespace (spaces, tabs, newlines)
	// and rejoins with single spaces. This handles newline injection and
	// collapses multiple spaces in one efficient operation.
	input = strings.Join(strings.Fields(input), " ")

	// Limit length to prevent prompt stuffing attacks.
	// Trim after truncation to avoid trailing whitespace from mid-word cuts.
	if len(input) > maxLength {
		input = strings.TrimSpace(input[:maxLength])
	}

	return input
}

// SanitizeCategoryName sanitizes a category name for safe embedding in
// prompts, with a shorter length limit appropriate for category names.
func SanitizeCategoryName(name string) string {
	return SanitizeForPrompt(name, MaxCategoryNameLength)
}

// extractJSON extracts a JSON object from text that may contain preamble.
// Gemini sometimes returns responses like "Here is the JSON:\n{...}" even
// when ResponseMIMEType is set to application/json.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	// Find the first { and last } to extract JSON object.
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(text, "}")
	if end == -1 || end <= start {
		return ""
	}

	return text[start : end+1]
}

// stripMarkdownFence removes a surrounding ```json fence so the body
// can be fed to the JSON decoder.
func stripMarkdownFence(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

// hashText creates a short SHA256 digest of user text for secure logging.
func hashText(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:8])
}
