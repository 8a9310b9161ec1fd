package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/af-corp/flodesk-bridge/internal/credential"
	"github.com/af-corp/flodesk-bridge/internal/dispatch"
	"github.com/af-corp/flodesk-bridge/internal/httputil"
	"github.com/af-corp/flodesk-bridge/internal/telemetry"
)

// Dispatcher is the core the transport layer feeds normalized triples into.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) dispatch.Outcome
}

// Handler assembles {action, apiKey, payload} triples from the HTTP surface
// and writes the dispatcher's outcome. Its only job is shape: URL decoding,
// header extraction, account-to-credential resolution.
type Handler struct {
	dispatcher Dispatcher
	accounts   credential.Store
	metrics    *telemetry.Metrics
}

// NewHandler builds the transport handler. accounts may be nil, in which
// case callers must supply the API key directly. metrics may be nil in tests.
func NewHandler(dispatcher Dispatcher, accounts credential.Store, metrics *telemetry.Metrics) *Handler {
	return &Handler{dispatcher: dispatcher, accounts: accounts, metrics: metrics}
}

// Router mounts all bridge routes.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)

	r.Route("/flodesk", func(r chi.Router) {
		// Generic action endpoint, kept for workflow-platform compatibility
		r.Post("/", h.Action)

		// Per-resource routes assembling the same triples
		r.Get("/segments", h.ListSegments)
		r.Get("/segments/{id}", h.GetSegment)
		r.Get("/subscribers", h.ListSubscribers)
		r.Post("/subscribers", h.CreateSubscriber)
		r.Get("/subscribers/{identifier}", h.GetSubscriber)
		r.Post("/subscribers/{identifier}/segments", h.AddToSegments)
		r.Delete("/subscribers/{identifier}/segments", h.RemoveFromSegments)
		r.Post("/subscribers/{identifier}/unsubscribe", h.Unsubscribe)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, requestID(w), http.StatusNotFound, httputil.Fail("endpoint not found", map[string]string{"path": r.URL.Path}))
	})

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Action handles the generic POST endpoint carrying a full triple in the body.
func (h *Handler) Action(w http.ResponseWriter, r *http.Request) {
	var req dispatch.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, requestID(w), http.StatusBadRequest, httputil.Fail("invalid JSON body", nil))
		return
	}
	if req.APIKey == "" {
		req.APIKey = h.credentialFrom(r)
	}
	h.run(w, r, req.Action, req.APIKey, req.Payload)
}

func (h *Handler) ListSegments(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{}
	if r.URL.Query().Get("include_subscribers") == "true" {
		payload["include_subscribers"] = true
	}
	h.run(w, r, dispatch.ActionGetAllSegments, h.credentialFrom(r), payload)
}

func (h *Handler) GetSegment(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, dispatch.ActionGetSegment, h.credentialFrom(r), map[string]any{
		"segmentId": pathParam(r, "id"),
	})
}

func (h *Handler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, dispatch.ActionGetAllSubscribers, h.credentialFrom(r), map[string]any{})
}

func (h *Handler) GetSubscriber(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"subscriberId": pathParam(r, "identifier"),
	}
	if r.URL.Query().Get("segmentsOnly") == "true" {
		payload["segmentsOnly"] = true
	}
	h.run(w, r, dispatch.ActionGetSubscriber, h.credentialFrom(r), payload)
}

func (h *Handler) CreateSubscriber(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}
	h.run(w, r, dispatch.ActionCreateOrUpdateSubscriber, h.credentialFrom(r), payload)
}

func (h *Handler) AddToSegments(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}
	payload["subscriberId"] = pathParam(r, "identifier")
	h.run(w, r, dispatch.ActionAddToSegments, h.credentialFrom(r), payload)
}

func (h *Handler) RemoveFromSegments(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}
	payload["subscriberId"] = pathParam(r, "identifier")
	h.run(w, r, dispatch.ActionRemoveFromSegment, h.credentialFrom(r), payload)
}

func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, dispatch.ActionUnsubscribeFromAll, h.credentialFrom(r), map[string]any{
		"subscriberId": pathParam(r, "identifier"),
	})
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, action, apiKey string, payload map[string]any) {
	reqID := requestID(w)
	start := time.Now()

	outcome := h.dispatcher.Dispatch(r.Context(), dispatch.Request{
		Action:  action,
		APIKey:  apiKey,
		Payload: payload,
	})

	duration := time.Since(start)
	slog.Info("action dispatched",
		"request_id", reqID,
		"action", action,
		"status", outcome.Status,
		"api_key", credential.SafePrefix(apiKey),
		"duration_ms", duration.Milliseconds(),
	)
	if h.metrics != nil {
		h.metrics.RecordRequest(action, strconv.Itoa(outcome.Status), float64(duration.Milliseconds()))
	}

	httputil.WriteJSON(w, reqID, outcome.Status, outcome.Body)
}

// credentialFrom extracts the raw credential: x-api-key header, then the
// Authorization header, then the account store keyed by X-Account-ID. The
// value is passed to the dispatcher unvalidated; the resolver owns format
// checks.
func (h *Handler) credentialFrom(r *http.Request) string {
	if key := r.Header.Get("x-api-key"); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		return auth
	}
	if h.accounts != nil {
		if accountID := r.Header.Get("X-Account-ID"); accountID != "" {
			key, err := h.accounts.Lookup(r.Context(), accountID)
			if err != nil {
				slog.Error("account credential lookup failed", "account_id", accountID, "error", err)
				return ""
			}
			return key
		}
	}
	return ""
}

// pathParam returns a percent-decoded path parameter. Emails arrive as
// user%40example.com and must be decoded before any validation runs.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func decodePayload(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	payload := map[string]any{}
	if r.Body == nil || r.ContentLength == 0 {
		return payload, true
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httputil.WriteJSON(w, requestID(w), http.StatusBadRequest, httputil.Fail("invalid JSON body", nil))
		return nil, false
	}
	return payload, true
}

func requestID(w http.ResponseWriter) string {
	return w.Header().Get("X-Request-ID")
}
