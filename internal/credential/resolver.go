package credential

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Flodesk API keys are opaque tokens; the bridge only checks that the value
// looks plausible before spending a downstream call on it.
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

const (
	minKeyLength = 10
	maxKeyLength = 100
)

// ErrMissing is returned when no credential was supplied at all.
var ErrMissing = errors.New("api key is required")

// FormatError reports a credential that was present but unusable.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "invalid api key: " + e.Reason
}

// Resolve turns a raw header or body value into a sanitized credential.
// "Basic " and "Bearer " prefixes are stripped case-insensitively so callers
// can forward an Authorization header verbatim. The credential's internal
// structure is never interpreted here.
func Resolve(raw string) (string, error) {
	key := strings.TrimSpace(raw)

	lower := strings.ToLower(key)
	switch {
	case strings.HasPrefix(lower, "basic "):
		key = strings.TrimSpace(key[len("basic "):])
	case strings.HasPrefix(lower, "bearer "):
		key = strings.TrimSpace(key[len("bearer "):])
	}

	if key == "" {
		return "", ErrMissing
	}
	if len(key) < minKeyLength {
		return "", &FormatError{Reason: fmt.Sprintf("too short (minimum %d characters)", minKeyLength)}
	}
	if len(key) > maxKeyLength {
		return "", &FormatError{Reason: fmt.Sprintf("too long (maximum %d characters)", maxKeyLength)}
	}
	if !keyPattern.MatchString(key) {
		return "", &FormatError{Reason: "contains invalid characters"}
	}
	return key, nil
}

// SafePrefix returns a safe-to-log prefix of a credential (never the full value).
func SafePrefix(key string) string {
	if len(key) <= 6 {
		return "***"
	}
	return key[:6] + "..."
}
