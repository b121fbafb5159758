// Package config handles loading and persisting user configuration
// for baldi. Configuration is stored in ~/.baldionna/config.json and
// layered with a local .env file and environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/joho/godotenv"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	dirName         = ".baldionna"
	fileName        = "config.json"
	defaultProvider = "openrouter"
	defaultPersona  = "baldionna"
	defaultListen   = "127.0.0.1:8787"

	envKeyProvider = "BALDI_PROVIDER"
	envKeyModel    = "BALDI_MODEL"
	envKeyPersona  = "BALDI_PERSONA"
	envKeySerper   = "SERPER_API_KEY"
	envKeyJina     = "JINA_API_KEY"
)

// providerEnv lists, per provider, the environment variables that may carry
// its credential. The first non-empty one wins.
var providerEnv = map[string][]string{
	"openrouter": {"OPENROUTER_API_KEY", "DEEPSEEK_API_KEY", "VITE_DEEPSEEK_API_KEY"},
	"deepseek":   {"DEEPSEEK_API_KEY"},
	"grok":       {"XAI_API_KEY", "GROK_API_KEY"},
	"gemini":     {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// Providers returns the known provider names in display order.
func Providers() []string {
	return []string{"openrouter", "deepseek", "grok", "gemini"}
}

// Generation carries optional overrides of the request defaults.
// Nil fields keep the persona or built-in default.
type Generation struct {
	MaxTokens         *int     `json:"max_tokens,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	TopP              *float64 `json:"top_p,omitempty"`
	PresencePenalty   *float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty  *float64 `json:"frequency_penalty,omitempty"`
	RepetitionPenalty *float64 `json:"repetition_penalty,omitempty"`
}

// Guard carries optional overrides of the output guard policy.
// An explicit zero disables the matching check.
type Guard struct {
	Disabled      bool    `json:"disabled,omitempty"`
	TokenCeiling  *int    `json:"token_ceiling,omitempty"`
	CharsPerToken *int    `json:"chars_per_token,omitempty"`
	Window        *int    `json:"window,omitempty"`
	MinRepeatLen  *int    `json:"min_repeat_len,omitempty"`
	MaxStrikes    *int    `json:"max_strikes,omitempty"`
	MinWordLen    *int    `json:"min_word_len,omitempty"`
	WordCeiling   *int    `json:"word_ceiling,omitempty"`
	Suffix        *string `json:"suffix,omitempty"`
	SuffixCeiling *int    `json:"suffix_ceiling,omitempty"`
}

// Search configures web search augmentation.
type Search struct {
	SerperKey string `json:"serper_key,omitempty"`
	JinaKey   string `json:"jina_key,omitempty"`
	Results   int    `json:"results,omitempty"`
	Pages     int    `json:"pages,omitempty"`
}

// Config holds the user's configuration.
type Config struct {
	Provider   string            `json:"provider"`
	Model      string            `json:"model,omitempty"`
	BaseURL    string            `json:"base_url,omitempty"`
	Persona    string            `json:"persona,omitempty"`
	System     string            `json:"system,omitempty"`
	APIKeys    map[string]string `json:"api_keys,omitempty"`
	Generation Generation        `json:"generation"`
	Guard      Guard             `json:"guard"`
	Search     Search            `json:"search"`
	Listen     string            `json:"listen,omitempty"`
}

// APIKey returns the credential configured for provider, or "".
func (c *Config) APIKey(provider string) string {
	if c.APIKeys == nil {
		return ""
	}
	return c.APIKeys[provider]
}

// Dir returns the configuration directory path.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, dirName)
}

func configPath() string {
	return filepath.Join(Dir(), fileName)
}

func defaults() *Config {
	return &Config{
		Provider: defaultProvider,
		Persona:  defaultPersona,
		Listen:   defaultListen,
		APIKeys:  map[string]string{},
	}
}

// Load reads the configuration from disk, .env and environment variables.
// A missing config file is not an error; a malformed one is.
func Load() (*Config, error) {
	// .env is optional and never overrides variables already set.
	_ = godotenv.Load()

	cfg, err := loadFile()
	if err != nil {
		return nil, err
	}

	if v := os.Getenv(envKeyProvider); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv(envKeyModel); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv(envKeyPersona); v != "" {
		cfg.Persona = v
	}
	for provider, keys := range providerEnv {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				cfg.APIKeys[provider] = v
				break
			}
		}
	}
	if v := os.Getenv(envKeySerper); v != "" {
		cfg.Search.SerperKey = v
	}
	if v := os.Getenv(envKeyJina); v != "" {
		cfg.Search.JinaKey = v
	}

	if cfg.Provider == "" {
		cfg.Provider = defaultProvider
	}
	if !slices.Contains(Providers(), cfg.Provider) {
		return nil, fmt.Errorf("unknown provider %q (want one of %v)", cfg.Provider, Providers())
	}
	return cfg, nil
}

// loadFile reads only the persisted file layer on top of the defaults.
func loadFile() (*Config, error) {
	cfg := defaults()
	path := configPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if cfg.APIKeys == nil {
		cfg.APIKeys = map[string]string{}
	}
	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}
	return cfg, nil
}

// save persists the config to disk.
func save(cfg *Config) error {
	if err := os.MkdirAll(Dir(), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath(), data, 0o600)
}

func update(fn func(cfg *Config)) error {
	cfg, err := loadFile()
	if err != nil {
		return err
	}
	fn(cfg)
	return save(cfg)
}

// SetAPIKey saves the API key for provider to the config file.
func SetAPIKey(provider, key string) error {
	if _, ok := providerEnv[provider]; !ok && provider != "serper" && provider != "jina" {
		return fmt.Errorf("unknown provider %q", provider)
	}
	return update(func(cfg *Config) {
		switch provider {
		case "serper":
			cfg.Search.SerperKey = key
		case "jina":
			cfg.Search.JinaKey = key
		default:
			cfg.APIKeys[provider] = key
		}
	})
}

// SetModel saves the model preference to the config file.
func SetModel(model string) error {
	return update(func(cfg *Config) { cfg.Model = model })
}

// SetProvider saves the provider preference to the config file.
func SetProvider(provider string) error {
	if !slices.Contains(Providers(), provider) {
		return fmt.Errorf("unknown provider %q (want one of %v)", provider, Providers())
	}
	return update(func(cfg *Config) { cfg.Provider = provider })
}

// SetPersona saves the persona preference to the config file.
func SetPersona(persona string) error {
	return update(func(cfg *Config) { cfg.Persona = persona })
}
