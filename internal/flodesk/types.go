package flodesk

// Subscriber is a Flodesk subscriber record. Owned by Flodesk; the bridge
// never persists it and re-fetches on every request.
type Subscriber struct {
	ID             string            `json:"id"`
	Email          string            `json:"email"`
	Status         string            `json:"status,omitempty"`
	FirstName      string            `json:"first_name,omitempty"`
	LastName       string            `json:"last_name,omitempty"`
	CustomFields   map[string]string `json:"custom_fields,omitempty"`
	Segments       []SegmentRef      `json:"segments,omitempty"`
	OptinIP        string            `json:"optin_ip,omitempty"`
	OptinTimestamp string            `json:"optin_timestamp,omitempty"`
	CreatedAt      string            `json:"created_at,omitempty"`
}

// Subscriber statuses as reported by Flodesk.
const (
	StatusActive       = "active"
	StatusUnsubscribed = "unsubscribed"
)

// SegmentRef is the minimal segment reference attached to a subscriber,
// resolved against the full segment set when detail is needed.
type SegmentRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type Segment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Option is a value/label pair for dropdown-rendering consumers. Email is set
// only when a segment list was resolved from a subscriber lookup.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Email string `json:"email,omitempty"`
}

// SegmentDetail is a segment enriched with its member subscribers.
type SegmentDetail struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Subscribers []Option `json:"subscribers"`
}

// SubscriberSegments is the segments-only view of a subscriber: identity
// fields plus the subscriber's segments resolved to value/label pairs.
type SubscriberSegments struct {
	ID      string   `json:"id"`
	Email   string   `json:"email"`
	Options []Option `json:"options"`
}

// SubscriberInput is the validated payload for the email-keyed upsert.
type SubscriberInput struct {
	Email        string            `json:"email" validate:"required,email,max=254"`
	FirstName    string            `json:"first_name,omitempty" validate:"max=50"`
	LastName     string            `json:"last_name,omitempty" validate:"max=50"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
}

// Ack acknowledges a membership or unsubscribe mutation.
type Ack struct {
	ID         string   `json:"id"`
	SegmentIDs []string `json:"segment_ids,omitempty"`
}
