package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/baldionna/baldi/internal/logging"
)

const (
	responseHeaderTimeout = 60 * time.Second
	maxErrorBody          = 4096
	defaultTitle          = "BALDIONNA-ai"
	defaultReferer        = "https://github.com/baldionna/baldi"
)

// Source streams the deltas of one completion. Stream returns nil when the
// stream ended normally or yield returned false.
type Source interface {
	Stream(ctx context.Context, req Request, yield func(delta string) bool) error
}

// Endpoint describes an OpenAI-compatible chat-completions provider.
type Endpoint struct {
	Provider     string
	URL          string
	DefaultModel string
}

var endpoints = map[string]Endpoint{
	"openrouter": {Provider: "openrouter", URL: "https://openrouter.ai/api/v1/chat/completions", DefaultModel: "deepseek/deepseek-chat"},
	"deepseek":   {Provider: "deepseek", URL: "https://api.deepseek.com/chat/completions", DefaultModel: "deepseek-chat"},
	"grok":       {Provider: "grok", URL: "https://api.x.ai/v1/chat/completions", DefaultModel: "grok-3-mini"},
}

// LookupEndpoint returns the preset for an OpenAI-compatible provider.
func LookupEndpoint(provider string) (Endpoint, bool) {
	e, ok := endpoints[provider]
	return e, ok
}

// HTTPTransport opens server-sent event streams against a chat-completions
// endpoint using a bearer credential.
type HTTPTransport struct {
	Endpoint   Endpoint
	APIKey     string
	Model      string
	Referer    string
	Title      string
	HTTPClient *http.Client
	Log        *zap.Logger
}

// NewHTTPTransport returns a transport for the endpoint. An empty model
// selects the endpoint default.
func NewHTTPTransport(e Endpoint, apiKey, model string) *HTTPTransport {
	if model == "" {
		model = e.DefaultModel
	}
	return &HTTPTransport{
		Endpoint:   e,
		APIKey:     apiKey,
		Model:      model,
		Referer:    defaultReferer,
		Title:      defaultTitle,
		HTTPClient: newStreamingClient(),
	}
}

// newStreamingClient has no overall timeout since streams are long-lived;
// only the wait for response headers is bounded.
func newStreamingClient() *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.ResponseHeaderTimeout = responseHeaderTimeout
	return &http.Client{Transport: tr}
}

func (t *HTTPTransport) logger() *zap.Logger {
	if t.Log != nil {
		return t.Log
	}
	return logging.L()
}

// Open sends the request and returns the response body. The caller must
// close it. Cancelling ctx aborts the connection.
func (t *HTTPTransport) Open(ctx context.Context, req Request) (io.ReadCloser, error) {
	if strings.TrimSpace(t.APIKey) == "" {
		return nil, &AuthError{Provider: t.Endpoint.Provider, Reason: "no API key configured"}
	}

	body, err := req.Body(t.Model)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+t.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if t.Referer != "" {
		httpReq.Header.Set("HTTP-Referer", t.Referer)
	}
	if t.Title != "" {
		httpReq.Header.Set("X-Title", t.Title)
	}

	client := t.HTTPClient
	if client == nil {
		client = newStreamingClient()
	}
	t.logger().Debug("opening stream",
		zap.String("provider", t.Endpoint.Provider),
		zap.String("model", t.Model),
		zap.Int("body_bytes", len(body)))

	resp, err := client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &NetworkError{URL: t.Endpoint.URL, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return resp.Body, nil
}

// Stream opens the connection and decodes it until a terminal condition.
// The body is closed on every path.
func (t *HTTPTransport) Stream(ctx context.Context, req Request, yield func(delta string) bool) error {
	body, err := t.Open(ctx, req)
	if err != nil {
		return err
	}
	defer body.Close()
	return NewDecoder(t.logger()).Decode(ctx, body, yield)
}
