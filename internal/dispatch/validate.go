package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/af-corp/flodesk-bridge/internal/flodesk"
)

// Global validator instance for reuse
var validate = validator.New()

const maxSegmentIDs = 50

// subscriberInputFromPayload decodes and validates the createOrUpdate
// payload. The email is lowercased (Flodesk treats it case-insensitively)
// and name fields are trimmed and capped the way the workflow platform
// expects.
func subscriberInputFromPayload(payload map[string]any) (flodesk.SubscriberInput, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return flodesk.SubscriberInput{}, errors.New("subscriber data must be an object")
	}

	var input flodesk.SubscriberInput
	if err := json.Unmarshal(data, &input); err != nil {
		return flodesk.SubscriberInput{}, errors.New("subscriber data must be an object")
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.FirstName = clampString(input.FirstName, 50)
	input.LastName = clampString(input.LastName, 50)
	if input.CustomFields != nil {
		fields := make(map[string]string, len(input.CustomFields))
		for k, v := range input.CustomFields {
			fields[clampString(k, 50)] = clampString(v, 500)
		}
		input.CustomFields = fields
	}

	if err := validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return input, fieldError(verrs[0])
		}
		return input, errors.New("invalid subscriber data")
	}
	return input, nil
}

func fieldError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", jsonName(fe.Field()))
	case "email":
		return errors.New("invalid email format")
	case "max":
		return fmt.Errorf("%s is too long (max %s characters)", jsonName(fe.Field()), fe.Param())
	}
	return fmt.Errorf("%s is invalid", jsonName(fe.Field()))
}

func jsonName(field string) string {
	switch field {
	case "Email":
		return "email"
	case "FirstName":
		return "first_name"
	case "LastName":
		return "last_name"
	}
	return field
}

// identifierFromPayload extracts the subscriber identifier (email or
// provider id) and decides its variant once. Non-id identifiers must be
// well-formed emails before any downstream call is spent on them.
func identifierFromPayload(payload map[string]any) (flodesk.Identifier, error) {
	raw := stringField(payload, "email")
	if raw == "" {
		raw = stringField(payload, "subscriberId")
	}
	if raw == "" {
		raw = stringField(payload, "id")
	}
	if raw == "" {
		return flodesk.Identifier{}, errors.New("subscriberId or email is required")
	}

	ident := flodesk.ParseIdentifier(raw)
	if ident.IsProviderID() {
		return ident, nil
	}

	email := strings.ToLower(ident.String())
	if err := validate.Var(email, "email,max=254"); err != nil {
		return flodesk.Identifier{}, errors.New("invalid email format")
	}
	return flodesk.ParseIdentifier(email), nil
}

// segmentIDsFromPayload validates the segment-id list: a non-empty array of
// at most 50 non-blank strings, duplicates removed, order preserved.
func segmentIDsFromPayload(payload map[string]any) ([]string, error) {
	raw, ok := payload["segment_ids"]
	if !ok {
		raw, ok = payload["segmentIds"]
	}
	if !ok || raw == nil {
		return nil, errors.New("segment_ids is required")
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, errors.New("segment_ids must be an array")
	}
	if len(list) == 0 {
		return nil, errors.New("at least one segment id is required")
	}
	if len(list) > maxSegmentIDs {
		return nil, fmt.Errorf("too many segment ids (maximum %d)", maxSegmentIDs)
	}

	seen := make(map[string]bool, len(list))
	ids := make([]string, 0, len(list))
	for i, item := range list {
		id, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("invalid segment id at index %d", i)
		}
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("empty segment id at index %d", i)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return strings.TrimSpace(s)
}

func boolField(payload map[string]any, key string) bool {
	b, _ := payload[key].(bool)
	return b
}

// clampString trims and caps a value at maxLen bytes, backing off to the
// nearest rune boundary so truncation never ships invalid UTF-8 downstream.
func clampString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
