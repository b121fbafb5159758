package ai

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/baldionna/baldi/internal/config"
	"github.com/baldionna/baldi/internal/logging"
)

// Client binds a provider source, a persona and a guard policy, and runs
// sessions through per-conversation slots.
type Client struct {
	source    Source
	provider  string
	model     string
	persona   Persona
	system    string
	overrides config.Generation
	policy    Policy
	slots     *Slots
	log       *zap.Logger
}

// NewClient builds a client for the provider selected in cfg.
func NewClient(cfg *config.Config) (*Client, error) {
	persona, err := LookupPersona(cfg.Persona)
	if err != nil {
		return nil, err
	}

	var (
		source Source
		model  string
	)
	key := cfg.APIKey(cfg.Provider)
	switch cfg.Provider {
	case "gemini":
		g := NewGeminiSource(key, cfg.Model)
		g.BaseURL = cfg.BaseURL
		source, model = g, g.Model
	default:
		e, ok := LookupEndpoint(cfg.Provider)
		if !ok {
			return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
		}
		if cfg.BaseURL != "" {
			e.URL = cfg.BaseURL
		}
		t := NewHTTPTransport(e, key, cfg.Model)
		source, model = t, t.Model
	}

	c := NewClientWithSource(source, persona, DefaultPolicy().Apply(cfg.Guard))
	c.provider = cfg.Provider
	c.model = model
	c.overrides = cfg.Generation
	if cfg.System != "" {
		c.system = cfg.System
	}
	return c, nil
}

// NewClientWithSource builds a client around an existing source.
func NewClientWithSource(source Source, persona Persona, policy Policy) *Client {
	return &Client{
		source:   source,
		provider: "custom",
		persona:  persona,
		system:   persona.System,
		policy:   policy,
		slots:    NewSlots(),
		log:      logging.L(),
	}
}

// Provider returns the configured provider name.
func (c *Client) Provider() string { return c.provider }

// Model returns the model identifier sent to the provider.
func (c *Client) Model() string { return c.model }

// Persona returns the active persona.
func (c *Client) Persona() Persona { return c.persona }

// NewRequest builds a request with the client's system preamble. Option
// precedence, lowest first: defaults, persona, config overrides, opts.
func (c *Client) NewRequest(prompt string, history []Message, opts ...RequestOption) (Request, error) {
	all := []RequestOption{
		WithOverrides(c.persona.Overrides),
		WithOverrides(c.overrides),
		WithHistory(history),
	}
	return NewRequest(prompt, c.system, append(all, opts...)...)
}

// Run streams req in slot, superseding any session already active there.
func (c *Client) Run(ctx context.Context, slot string, req Request, sink Sink) Outcome {
	log := c.log.With(zap.String("slot", slot), zap.String("provider", c.provider), zap.String("model", c.model))
	return c.slots.Run(ctx, slot, NewSession(c.source, req, c.policy, log), sink)
}

// Ask builds a request from prompt and history and streams it in slot.
// Request errors are returned before any network call.
func (c *Client) Ask(ctx context.Context, slot, prompt string, history []Message, sink Sink, opts ...RequestOption) (Outcome, error) {
	req, err := c.NewRequest(prompt, history, opts...)
	if err != nil {
		return Outcome{}, err
	}
	return c.Run(ctx, slot, req, sink), nil
}

// Cancel stops the session active in slot.
func (c *Client) Cancel(slot string) bool {
	return c.slots.Cancel(slot)
}

// Active reports whether slot has a running session.
func (c *Client) Active(slot string) bool {
	return c.slots.Active(slot)
}
