package flodesk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
)

// Segments wraps the Flodesk segment endpoints.
type Segments struct {
	client *Client
}

func NewSegments(client *Client) *Segments {
	return &Segments{client: client}
}

func (g *Segments) ListAll(ctx context.Context) ([]Segment, error) {
	raw, err := g.client.do(ctx, http.MethodGet, "/segments", nil)
	if err != nil {
		return nil, err
	}

	var segs []Segment
	if err := json.Unmarshal(unwrapEnvelope(raw), &segs); err != nil {
		return nil, fmt.Errorf("decode segment list: %w", err)
	}
	return segs, nil
}

func (g *Segments) Get(ctx context.Context, id string) (*Segment, error) {
	raw, err := g.client.do(ctx, http.MethodGet, "/segments/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, describeNotFound(err, "segment", id)
	}

	var seg Segment
	if err := json.Unmarshal(unwrapEnvelope(raw), &seg); err != nil {
		return nil, fmt.Errorf("decode segment: %w", err)
	}
	return &seg, nil
}

// Members returns a segment's subscribers as value/label pairs.
func (g *Segments) Members(ctx context.Context, id string) ([]Option, error) {
	raw, err := g.client.do(ctx, http.MethodGet, "/segments/"+url.PathEscape(id)+"/subscribers", nil)
	if err != nil {
		return nil, describeNotFound(err, "segment", id)
	}

	var subs []Subscriber
	if err := json.Unmarshal(unwrapEnvelope(raw), &subs); err != nil {
		return nil, fmt.Errorf("decode segment members: %w", err)
	}

	options := make([]Option, 0, len(subs))
	for _, sub := range subs {
		options = append(options, Option{Value: sub.ID, Label: sub.Email})
	}
	return options, nil
}

// ListAllWithMembers fetches every segment and enriches each with its member
// list. Member fetches fan out concurrently, one call per segment. A failed
// member fetch yields that segment with an empty member list; it never
// cancels the sibling fetches or aborts the listing.
func (g *Segments) ListAllWithMembers(ctx context.Context) ([]SegmentDetail, error) {
	segs, err := g.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	details := make([]SegmentDetail, len(segs))
	var wg sync.WaitGroup
	for i, seg := range segs {
		wg.Add(1)
		go func(i int, seg Segment) {
			defer wg.Done()
			members, err := g.Members(ctx, seg.ID)
			if err != nil {
				slog.Warn("segment member fetch failed", "segment_id", seg.ID, "error", err)
				members = []Option{}
			}
			details[i] = SegmentDetail{ID: seg.ID, Name: seg.Name, Subscribers: members}
		}(i, seg)
	}
	wg.Wait()

	return details, nil
}
