package domain

import "regexp"

const (
	// MaxKeyNameLength bounds transit key names; aligned with the VARCHAR(255)
	// column in the schema.
	MaxKeyNameLength = 255
)

// keyNamePattern restricts names to path-safe characters so they embed cleanly
// in URLs, AAD strings, and derivation labels.
var keyNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidKeyName reports whether name is acceptable for a transit key.
func ValidKeyName(name string) bool {
	return name != "" && len(name) <= MaxKeyNameLength && keyNamePattern.MatchString(name)
}
