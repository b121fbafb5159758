package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/baldionna/baldi/internal/logging"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiSource streams completions through the Gemini API SDK.
type GeminiSource struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Log        *zap.Logger
}

// NewGeminiSource returns a Gemini source. An empty model selects the default.
func NewGeminiSource(apiKey, model string) *GeminiSource {
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiSource{APIKey: apiKey, Model: model}
}

func (g *GeminiSource) logger() *zap.Logger {
	if g.Log != nil {
		return g.Log
	}
	return logging.L()
}

// Stream implements Source.
func (g *GeminiSource) Stream(ctx context.Context, req Request, yield func(delta string) bool) error {
	if strings.TrimSpace(g.APIKey) == "" {
		return &AuthError{Provider: "gemini", Reason: "no API key configured"}
	}

	cc := &genai.ClientConfig{
		APIKey:     g.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.HTTPClient,
	}
	if g.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return fmt.Errorf("creating genai client: %w", err)
	}

	g.logger().Debug("opening stream", zap.String("provider", "gemini"), zap.String("model", g.Model))

	for resp, err := range client.Models.GenerateContentStream(ctx, g.Model, geminiContents(req), geminiConfig(req)) {
		if err != nil {
			return g.mapError(ctx, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if text := resp.Text(); text != "" {
			if !yield(text) {
				return nil
			}
		}
	}
	return nil
}

func (g *GeminiSource) mapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &HTTPError{Status: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &HTTPError{Status: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return &NetworkError{URL: "gemini:" + g.Model, Err: err}
}

// geminiContents maps history and prompt onto Gemini turns. The system
// preamble travels separately in the config.
func geminiContents(req Request) []*genai.Content {
	var contents []*genai.Content
	for _, m := range req.History() {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return append(contents, genai.NewContentFromText(req.Prompt(), genai.RoleUser))
}

func geminiConfig(req Request) *genai.GenerateContentConfig {
	o := req.Options()
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens:  int32(o.MaxTokens),
		Temperature:      genai.Ptr(float32(o.Temperature)),
		TopP:             genai.Ptr(float32(o.TopP)),
		PresencePenalty:  genai.Ptr(float32(o.PresencePenalty)),
		FrequencyPenalty: genai.Ptr(float32(o.FrequencyPenalty)),
	}
	if s := req.System(); s != "" {
		cfg.SystemInstruction = genai.NewContentFromText(s, genai.RoleUser)
	}
	return cfg
}
