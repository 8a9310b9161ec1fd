package flodesk

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/af-corp/flodesk-bridge/internal/telemetry"
)

// Auth schemes for the Authorization header. Which one Flodesk expects is a
// provider contract detail, so it is configuration rather than logic.
const (
	AuthSchemeBearer = "bearer"
	AuthSchemeBasic  = "basic"
)

// Factory builds one-shot authenticated clients. A client is bound to a
// single credential and must not outlive the request it was built for.
type Factory struct {
	baseURL    string
	authScheme string
	timeout    time.Duration
	metrics    *telemetry.Metrics
}

func NewFactory(baseURL, authScheme string, timeout time.Duration, metrics *telemetry.Metrics) *Factory {
	return &Factory{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		authScheme: authScheme,
		timeout:    timeout,
		metrics:    metrics,
	}
}

// Client calls the Flodesk API on behalf of one credential.
type Client struct {
	apiKey     string
	baseURL    string
	authScheme string
	http       *http.Client
	metrics    *telemetry.Metrics
}

func (f *Factory) Client(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    f.baseURL,
		authScheme: f.authScheme,
		http:       &http.Client{Timeout: f.timeout},
		metrics:    f.metrics,
	}
}

// do performs one Flodesk call and classifies the outcome. A received
// response, even 4xx, is not a transport failure: 404 and 401 become typed
// errors the dispatcher can translate, other non-2xx statuses carry the
// original status and body for diagnostics. Only network failures and
// timeouts surface as unavailable.
func (c *Client) do(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s %s payload: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authorization())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordUpstream(method, "error", float64(time.Since(start).Milliseconds()))
		}
		return nil, unavailableError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailableError(err)
	}

	if c.metrics != nil {
		c.metrics.RecordUpstream(method, strconv.Itoa(resp.StatusCode), float64(time.Since(start).Milliseconds()))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return data, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, invalidCredentialError(resp.StatusCode, string(data))
	case resp.StatusCode == http.StatusNotFound:
		return nil, notFoundError(resp.StatusCode, string(data))
	default:
		return nil, upstreamError(resp.StatusCode, string(data))
	}
}

func (c *Client) authorization() string {
	if c.authScheme == AuthSchemeBasic {
		// Flodesk basic auth is the API key as username with an empty password.
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.apiKey+":"))
	}
	return "Bearer " + c.apiKey
}
