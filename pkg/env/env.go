package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// OneOf is Get restricted to a closed set of values, compared case-insensitively.
// Anything outside allowed yields fallback.
func OneOf(key, fallback string, allowed ...string) string {
	val := strings.ToLower(Get(key, fallback))
	for _, candidate := range allowed {
		if val == candidate {
			return val
		}
	}
	return fallback
}
