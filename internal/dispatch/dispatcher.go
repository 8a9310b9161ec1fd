package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/af-corp/flodesk-bridge/internal/credential"
	"github.com/af-corp/flodesk-bridge/internal/flodesk"
	"github.com/af-corp/flodesk-bridge/internal/httputil"
)

// Request is the normalized inbound triple. The transport layer assembles it
// from whatever URL shape it exposes; the dispatcher never sees HTTP.
type Request struct {
	Action  string         `json:"action"`
	APIKey  string         `json:"apiKey"`
	Payload map[string]any `json:"payload"`
}

// Outcome is a fully-formed response: status code plus one of the three
// envelopes. Dispatch never returns an error; every failure is translated
// here.
type Outcome struct {
	Status int
	Body   httputil.Envelope
}

// The fixed action set. updateSubscriberSegments is kept as an alias of
// addToSegments for workflow-platform compatibility.
const (
	ActionGetAllSubscribers        = "getAllSubscribers"
	ActionGetSubscriber            = "getSubscriber"
	ActionCreateOrUpdateSubscriber = "createOrUpdateSubscriber"
	ActionAddToSegments            = "addToSegments"
	ActionUpdateSubscriberSegments = "updateSubscriberSegments"
	ActionRemoveFromSegment        = "removeFromSegment"
	ActionUnsubscribeFromAll       = "unsubscribeFromAll"
	ActionGetAllSegments           = "getAllSegments"
	ActionGetSegment               = "getSegment"
)

var knownActions = map[string]bool{
	ActionGetAllSubscribers:        true,
	ActionGetSubscriber:            true,
	ActionCreateOrUpdateSubscriber: true,
	ActionAddToSegments:            true,
	ActionUpdateSubscriberSegments: true,
	ActionRemoveFromSegment:        true,
	ActionUnsubscribeFromAll:       true,
	ActionGetAllSegments:           true,
	ActionGetSegment:               true,
}

// Dispatcher maps an action plus payload onto one resource-service
// operation: validate, invoke, normalize. No state is retained between
// calls; every dispatch builds its own client for its own credential.
type Dispatcher struct {
	factory    *flodesk.Factory
	onlyActive bool
}

func New(factory *flodesk.Factory, onlyActive bool) *Dispatcher {
	return &Dispatcher{factory: factory, onlyActive: onlyActive}
}

func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Outcome {
	if !knownActions[req.Action] {
		return fail(http.StatusBadRequest, "invalid action specified", nil)
	}

	apiKey, err := credential.Resolve(req.APIKey)
	if err != nil {
		return fail(http.StatusBadRequest, err.Error(), nil)
	}

	payload := req.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	client := d.factory.Client(apiKey)
	subscribers := flodesk.NewSubscribers(client, d.onlyActive)
	segments := flodesk.NewSegments(client)

	switch req.Action {
	case ActionGetAllSubscribers:
		return getAllSubscribers(ctx, subscribers)
	case ActionGetSubscriber:
		return getSubscriber(ctx, subscribers, payload)
	case ActionCreateOrUpdateSubscriber:
		return createOrUpdateSubscriber(ctx, subscribers, payload)
	case ActionAddToSegments, ActionUpdateSubscriberSegments:
		return addToSegments(ctx, subscribers, payload)
	case ActionRemoveFromSegment:
		return removeFromSegment(ctx, subscribers, payload)
	case ActionUnsubscribeFromAll:
		return unsubscribeFromAll(ctx, subscribers, payload)
	case ActionGetAllSegments:
		return getAllSegments(ctx, segments, payload)
	case ActionGetSegment:
		return getSegment(ctx, subscribers, segments, payload)
	}
	return fail(http.StatusBadRequest, "invalid action specified", nil)
}

func getAllSubscribers(ctx context.Context, svc *flodesk.Subscribers) Outcome {
	subs, err := svc.ListAll(ctx)
	if err != nil {
		return outcomeFromError(err)
	}

	options := make([]flodesk.Option, 0, len(subs))
	for _, sub := range subs {
		options = append(options, flodesk.Option{Value: sub.ID, Label: sub.Email})
	}
	return Outcome{Status: http.StatusOK, Body: httputil.Options(options)}
}

func getSubscriber(ctx context.Context, svc *flodesk.Subscribers, payload map[string]any) Outcome {
	ident, err := identifierFromPayload(payload)
	if err != nil {
		return fail(http.StatusBadRequest, err.Error(), nil)
	}

	if boolField(payload, "segmentsOnly") {
		view, err := svc.GetSegments(ctx, ident)
		if err != nil {
			return outcomeFromError(err)
		}
		return success(view)
	}

	sub, err := svc.Get(ctx, ident)
	if err != nil {
		return outcomeFromError(err)
	}
	return success(sub)
}

func createOrUpdateSubscriber(ctx context.Context, svc *flodesk.Subscribers, payload map[string]any) Outcome {
	input, err := subscriberInputFromPayload(payload)
	if err != nil {
		return fail(http.StatusBadRequest, err.Error(), nil)
	}

	sub, err := svc.CreateOrUpdate(ctx, input)
	if err != nil {
		return outcomeFromError(err)
	}
	return success(sub)
}

func addToSegments(ctx context.Context, svc *flodesk.Subscribers, payload map[string]any) Outcome {
	ident, err := identifierFromPayload(payload)
	if err != nil {
		return fail(http.StatusBadRequest, err.Error(), nil)
	}
	ids, err := segmentIDsFromPayload(payload)
	if err != nil {
		return fail(http.StatusBadRequest, err.Error(), nil)
	}

	sub, err := svc.AddToSegments(ctx, ident, ids)
	if err != nil {
		return outcomeFromError(err)
	}
	return success(sub)
}

func removeFromSegment(ctx context.Context, svc *flodesk.Subscribers, payload map[string]any) Outcome {
	ident, err := identifierFromPayload(payload)
	if err != nil {
		return fail(http.StatusBadRequest, err.Error(), nil)
	}
	ids, err := segmentIDsFromPayload(payload)
	if err != nil {
		return fail(http.StatusBadRequest, err.Error(), nil)
	}

	ack, err := svc.RemoveFromSegments(ctx, ident, ids)
	if err != nil {
		return outcomeFromError(err)
	}
	return success(ack)
}

func unsubscribeFromAll(ctx context.Context, svc *flodesk.Subscribers, payload map[string]any) Outcome {
	ident, err := identifierFromPayload(payload)
	if err != nil {
		return fail(http.StatusBadRequest, err.Error(), nil)
	}

	ack, err := svc.UnsubscribeFromAll(ctx, ident)
	if err != nil {
		return outcomeFromError(err)
	}
	return success(ack)
}

func getAllSegments(ctx context.Context, svc *flodesk.Segments, payload map[string]any) Outcome {
	if boolField(payload, "include_subscribers") || boolField(payload, "includeSubscribers") {
		details, err := svc.ListAllWithMembers(ctx)
		if err != nil {
			return outcomeFromError(err)
		}
		return success(details)
	}

	segs, err := svc.ListAll(ctx)
	if err != nil {
		return outcomeFromError(err)
	}
	options := make([]flodesk.Option, 0, len(segs))
	for _, seg := range segs {
		options = append(options, flodesk.Option{Value: seg.ID, Label: seg.Name})
	}
	return Outcome{Status: http.StatusOK, Body: httputil.Options(options)}
}

// getSegment is dual-mode: a 24-hex id looks up one segment, anything else is
// treated as a subscriber email whose segment list is resolved instead.
func getSegment(ctx context.Context, subscribers *flodesk.Subscribers, segments *flodesk.Segments, payload map[string]any) Outcome {
	raw := stringField(payload, "segmentId")
	if raw == "" {
		raw = stringField(payload, "id")
	}
	if raw == "" {
		raw = stringField(payload, "email")
	}
	if raw == "" {
		return fail(http.StatusBadRequest, "segmentId or email is required", nil)
	}

	ident := flodesk.ParseIdentifier(raw)
	if ident.IsProviderID() {
		seg, err := segments.Get(ctx, ident.String())
		if err != nil {
			return outcomeFromError(err)
		}
		return success(flodesk.Option{Value: seg.ID, Label: seg.Name})
	}

	email := strings.ToLower(ident.String())
	if err := validate.Var(email, "email,max=254"); err != nil {
		return fail(http.StatusBadRequest, "invalid email format", nil)
	}
	ident = flodesk.ParseIdentifier(email)

	view, err := subscribers.GetSegments(ctx, ident)
	if err != nil {
		return outcomeFromError(err)
	}
	options := make([]flodesk.Option, 0, len(view.Options))
	for _, opt := range view.Options {
		opt.Email = view.Email
		options = append(options, opt)
	}
	return Outcome{Status: http.StatusOK, Body: httputil.Options(options)}
}

// outcomeFromError translates a classified downstream failure into an
// envelope and status code. Nothing escapes uncategorized.
func outcomeFromError(err error) Outcome {
	var fe *flodesk.Error
	if errors.As(err, &fe) {
		switch fe.Kind {
		case flodesk.KindNotFound:
			return fail(http.StatusNotFound, fe.Error(), nil)
		case flodesk.KindInvalidCredential:
			return fail(http.StatusUnauthorized, "invalid api key", nil)
		case flodesk.KindUpstream:
			slog.Error("flodesk request failed", "status", fe.Status, "body", fe.Body)
			return fail(http.StatusInternalServerError, "flodesk request failed", map[string]any{
				"status": fe.Status,
				"body":   fe.Body,
			})
		case flodesk.KindUnavailable:
			slog.Error("flodesk unreachable", "error", err)
			return fail(http.StatusInternalServerError, "flodesk is unreachable", nil)
		}
	}

	slog.Error("dispatch failed", "error", err)
	return fail(http.StatusInternalServerError, "an error occurred while processing your request", nil)
}

func success(data any) Outcome {
	return Outcome{Status: http.StatusOK, Body: httputil.Success(data)}
}

func fail(status int, message string, detail any) Outcome {
	return Outcome{Status: status, Body: httputil.Fail(message, detail)}
}
