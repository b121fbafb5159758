package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/baldionna/baldi/internal/config"
)

const (
	defaultMaxTokens         = 80000
	defaultTemperature       = 0.8
	defaultTopP              = 0.9
	defaultPresencePenalty   = 0.3
	defaultFrequencyPenalty  = 0.5
	defaultRepetitionPenalty = 1.15

	// maxHistory caps the prior messages carried into a request.
	maxHistory = 20
)

// Options controls generation parameters.
type Options struct {
	MaxTokens         int
	Temperature       float64
	TopP              float64
	PresencePenalty   float64
	FrequencyPenalty  float64
	RepetitionPenalty float64
}

// DefaultOptions returns the built-in generation defaults.
func DefaultOptions() Options {
	return Options{
		MaxTokens:         defaultMaxTokens,
		Temperature:       defaultTemperature,
		TopP:              defaultTopP,
		PresencePenalty:   defaultPresencePenalty,
		FrequencyPenalty:  defaultFrequencyPenalty,
		RepetitionPenalty: defaultRepetitionPenalty,
	}
}

// Apply returns o with every non-nil override applied.
func (o Options) Apply(g config.Generation) Options {
	if g.MaxTokens != nil {
		o.MaxTokens = *g.MaxTokens
	}
	if g.Temperature != nil {
		o.Temperature = *g.Temperature
	}
	if g.TopP != nil {
		o.TopP = *g.TopP
	}
	if g.PresencePenalty != nil {
		o.PresencePenalty = *g.PresencePenalty
	}
	if g.FrequencyPenalty != nil {
		o.FrequencyPenalty = *g.FrequencyPenalty
	}
	if g.RepetitionPenalty != nil {
		o.RepetitionPenalty = *g.RepetitionPenalty
	}
	return o
}

// Validate reports the first out-of-range field.
func (o Options) Validate() error {
	switch {
	case o.MaxTokens <= 0 || o.MaxTokens > math.MaxInt32:
		return fmt.Errorf("%w: max_tokens must be in [1,%d], got %d", ErrInvalidOptions, math.MaxInt32, o.MaxTokens)
	case o.Temperature < 0 || o.Temperature > 2:
		return fmt.Errorf("%w: temperature must be in [0,2], got %g", ErrInvalidOptions, o.Temperature)
	case o.TopP < 0 || o.TopP > 1:
		return fmt.Errorf("%w: top_p must be in [0,1], got %g", ErrInvalidOptions, o.TopP)
	}
	return nil
}

// Request is an immutable completion request. Build it with NewRequest.
type Request struct {
	prompt  string
	system  string
	history []Message
	options Options
}

// RequestOption customizes a Request under construction.
type RequestOption func(*Request)

// WithOptions replaces the generation options wholesale.
func WithOptions(o Options) RequestOption {
	return func(r *Request) { r.options = o }
}

// WithOverrides applies pointer-field overrides on top of the current options.
func WithOverrides(g config.Generation) RequestOption {
	return func(r *Request) { r.options = r.options.Apply(g) }
}

// WithMaxTokens sets max_tokens.
func WithMaxTokens(n int) RequestOption {
	return func(r *Request) { r.options.MaxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) RequestOption {
	return func(r *Request) { r.options.Temperature = t }
}

// WithTopP sets nucleus sampling.
func WithTopP(p float64) RequestOption {
	return func(r *Request) { r.options.TopP = p }
}

// WithHistory carries prior conversation turns. Only the last 20 are kept.
func WithHistory(history []Message) RequestOption {
	return func(r *Request) {
		trimmed := history
		if len(trimmed) > maxHistory {
			trimmed = trimmed[len(trimmed)-maxHistory:]
		}
		r.history = append([]Message(nil), trimmed...)
	}
}

// NewRequest builds a request from a prompt and system preamble.
// Blank prompts are rejected before anything else happens.
func NewRequest(prompt, system string, opts ...RequestOption) (Request, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Request{}, ErrEmptyPrompt
	}

	r := Request{
		prompt:  prompt,
		system:  strings.TrimSpace(system),
		options: DefaultOptions(),
	}
	for _, opt := range opts {
		opt(&r)
	}
	if err := r.options.Validate(); err != nil {
		return Request{}, err
	}
	return r, nil
}

// Prompt returns the trimmed user prompt.
func (r Request) Prompt() string { return r.prompt }

// System returns the system preamble.
func (r Request) System() string { return r.system }

// Options returns the generation options.
func (r Request) Options() Options { return r.options }

// History returns a copy of the prior turns.
func (r Request) History() []Message { return append([]Message(nil), r.history...) }

// Messages returns the ordered wire messages: system, history, then the prompt.
func (r Request) Messages() []Message {
	msgs := make([]Message, 0, len(r.history)+2)
	if r.system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: r.system})
	}
	msgs = append(msgs, r.history...)
	msgs = append(msgs, Message{Role: RoleUser, Content: r.prompt})
	return msgs
}

// Body serializes the chat-completions wire body for model.
func (r Request) Body(model string) ([]byte, error) {
	body := completionRequest{
		Model:             model,
		Stream:            true,
		MaxTokens:         r.options.MaxTokens,
		Temperature:       r.options.Temperature,
		TopP:              r.options.TopP,
		PresencePenalty:   r.options.PresencePenalty,
		FrequencyPenalty:  r.options.FrequencyPenalty,
		RepetitionPenalty: r.options.RepetitionPenalty,
	}
	for _, m := range r.Messages() {
		body.Messages = append(body.Messages, wireMessage{Role: m.Role, Content: m.Content})
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return data, nil
}
