package flodesk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Subscribers wraps the Flodesk subscriber endpoints and normalizes their
// response envelopes.
type Subscribers struct {
	client     *Client
	onlyActive bool
}

// NewSubscribers builds a subscriber service on a per-request client.
// onlyActive controls whether ListAll filters out non-active subscribers.
func NewSubscribers(client *Client, onlyActive bool) *Subscribers {
	return &Subscribers{client: client, onlyActive: onlyActive}
}

func (s *Subscribers) ListAll(ctx context.Context) ([]Subscriber, error) {
	raw, err := s.client.do(ctx, http.MethodGet, "/subscribers", nil)
	if err != nil {
		return nil, err
	}

	var subs []Subscriber
	if err := json.Unmarshal(unwrapEnvelope(raw), &subs); err != nil {
		return nil, fmt.Errorf("decode subscriber list: %w", err)
	}

	if !s.onlyActive {
		return subs, nil
	}
	active := subs[:0]
	for _, sub := range subs {
		if sub.Status == StatusActive {
			active = append(active, sub)
		}
	}
	return active, nil
}

// Get fetches one subscriber by provider id or email.
func (s *Subscribers) Get(ctx context.Context, ident Identifier) (*Subscriber, error) {
	raw, err := s.client.do(ctx, http.MethodGet, "/subscribers/"+ident.pathSegment(), nil)
	if err != nil {
		return nil, describeNotFound(err, "subscriber", ident.String())
	}

	var sub Subscriber
	if err := json.Unmarshal(unwrapEnvelope(raw), &sub); err != nil {
		return nil, fmt.Errorf("decode subscriber: %w", err)
	}
	return &sub, nil
}

// GetSegments returns the segments-only view of a subscriber: its segment
// refs resolved against the full segment set, as value/label pairs.
func (s *Subscribers) GetSegments(ctx context.Context, ident Identifier) (*SubscriberSegments, error) {
	sub, err := s.Get(ctx, ident)
	if err != nil {
		return nil, err
	}

	all, err := NewSegments(s.client).ListAll(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(all))
	for _, seg := range all {
		names[seg.ID] = seg.Name
	}

	options := make([]Option, 0, len(sub.Segments))
	for _, ref := range sub.Segments {
		label := names[ref.ID]
		if label == "" {
			label = ref.Name
		}
		options = append(options, Option{Value: ref.ID, Label: label})
	}

	return &SubscriberSegments{ID: sub.ID, Email: sub.Email, Options: options}, nil
}

// CreateOrUpdate upserts a subscriber keyed by email. Input must already have
// passed payload validation.
func (s *Subscribers) CreateOrUpdate(ctx context.Context, input SubscriberInput) (*Subscriber, error) {
	raw, err := s.client.do(ctx, http.MethodPost, "/subscribers", input)
	if err != nil {
		return nil, err
	}

	var sub Subscriber
	if err := json.Unmarshal(unwrapEnvelope(raw), &sub); err != nil {
		return nil, fmt.Errorf("decode upserted subscriber: %w", err)
	}
	return &sub, nil
}

// AddToSegments adds the subscriber to the given segments. An email
// identifier is resolved to the provider id first, since the membership
// endpoint only accepts ids.
func (s *Subscribers) AddToSegments(ctx context.Context, ident Identifier, segmentIDs []string) (*Subscriber, error) {
	id, err := s.resolveID(ctx, ident)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.do(ctx, http.MethodPost, "/subscribers/"+id+"/segments", segmentIDsBody{SegmentIDs: segmentIDs})
	if err != nil {
		return nil, describeNotFound(err, "subscriber", ident.String())
	}

	var sub Subscriber
	if err := json.Unmarshal(unwrapEnvelope(raw), &sub); err != nil {
		return nil, fmt.Errorf("decode subscriber after segment add: %w", err)
	}
	return &sub, nil
}

// RemoveFromSegments removes the subscriber from the given segments. The
// contract accepts an array of segment ids per call; removal is a DELETE
// with a body, which the Flodesk API supports.
func (s *Subscribers) RemoveFromSegments(ctx context.Context, ident Identifier, segmentIDs []string) (*Ack, error) {
	id, err := s.resolveID(ctx, ident)
	if err != nil {
		return nil, err
	}

	if _, err := s.client.do(ctx, http.MethodDelete, "/subscribers/"+id+"/segments", segmentIDsBody{SegmentIDs: segmentIDs}); err != nil {
		return nil, describeNotFound(err, "subscriber", ident.String())
	}
	return &Ack{ID: id, SegmentIDs: segmentIDs}, nil
}

// UnsubscribeFromAll unsubscribes the subscriber from all lists.
func (s *Subscribers) UnsubscribeFromAll(ctx context.Context, ident Identifier) (*Ack, error) {
	id, err := s.resolveID(ctx, ident)
	if err != nil {
		return nil, err
	}

	if _, err := s.client.do(ctx, http.MethodPost, "/subscribers/"+id+"/unsubscribe", nil); err != nil {
		return nil, describeNotFound(err, "subscriber", ident.String())
	}
	return &Ack{ID: id}, nil
}

// resolveID maps an identifier to the provider-internal id, fetching the
// subscriber when only an email is known.
func (s *Subscribers) resolveID(ctx context.Context, ident Identifier) (string, error) {
	if ident.IsProviderID() {
		return ident.String(), nil
	}
	sub, err := s.Get(ctx, ident)
	if err != nil {
		return "", err
	}
	return sub.ID, nil
}

type segmentIDsBody struct {
	SegmentIDs []string `json:"segment_ids"`
}
