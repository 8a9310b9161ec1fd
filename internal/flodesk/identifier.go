package flodesk

import (
	"net/url"
	"regexp"
	"strings"
)

// Flodesk subscriber and segment ids are 24-character hex strings. Anything
// else supplied as an identifier is treated as an email address.
var providerIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// Identifier is a two-variant subscriber reference: either a provider id or
// an email address. The variant is decided once, at parse time, and carried
// through the request instead of being re-detected in each service method.
type Identifier struct {
	value string
	isID  bool
}

func ParseIdentifier(raw string) Identifier {
	trimmed := strings.TrimSpace(raw)
	return Identifier{
		value: trimmed,
		isID:  providerIDPattern.MatchString(trimmed),
	}
}

// IsProviderID reports whether the identifier is a 24-hex Flodesk id.
func (i Identifier) IsProviderID() bool { return i.isID }

func (i Identifier) IsEmpty() bool { return i.value == "" }

func (i Identifier) String() string { return i.value }

// pathSegment escapes the identifier for use in a request path. Emails
// contain "@" and may contain "+", both of which must survive the round trip.
func (i Identifier) pathSegment() string {
	return url.PathEscape(i.value)
}
