// Package requestid generates identifiers for HTTP requests and report jobs.
package requestid

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	// MaxLength matches the length of a UUID string
	MaxLength = 36
	// PrefixLength is the length of the random prefix added to caller references
	PrefixLength = 5
	// MaxReferenceLength is what remains of MaxLength after the prefix and separator
	MaxReferenceLength = MaxLength - PrefixLength - 1
)

var (
	disallowedChars = regexp.MustCompile(`[^a-zA-Z0-9-]+`)
	repeatedHyphens = regexp.MustCompile(`-+`)
	validID         = regexp.MustCompile(`^[a-zA-Z0-9-]{1,36}$`)
)

// Generate returns a new identifier. A non-empty caller reference is kept,
// sanitized to [a-zA-Z0-9-], behind a random prefix: "{prefix}-{reference}".
// Without a usable reference a UUID is returned.
func Generate(reference string) string {
	ref := sanitize(reference)
	if ref == "" {
		return uuid.New().String()
	}

	if len(ref) > MaxReferenceLength {
		ref = strings.TrimSuffix(ref[:MaxReferenceLength], "-")
	}
	return randomPrefix() + "-" + ref
}

// Valid reports whether id could have been produced by Generate
func Valid(id string) bool {
	return validID.MatchString(id)
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, " ", "-")
	s = disallowedChars.ReplaceAllString(s, "")
	s = repeatedHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func randomPrefix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return uuid.New().String()[:PrefixLength]
	}
	return hex.EncodeToString(buf)[:PrefixLength]
}
