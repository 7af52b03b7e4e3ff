package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Fingerprint derives the identity key of a posting. Re-scraping the same
// listing from the same source yields the same key regardless of case or
// whitespace. Location and salary are not part of the key, so two openings
// with an identical title at one company collide.
func Fingerprint(title, company, sourceID string) string {
	input := NormalizeKey(title) + "|" + NormalizeKey(company) + "|" + NormalizeKey(sourceID)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16])
}

// NormalizeKey lower-cases s and strips all whitespace.
func NormalizeKey(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.ToLower(s), "")
}

// CollapseSpaces trims s and folds inner whitespace runs to one space.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}
