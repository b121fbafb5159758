package cmd

import (
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/baldionna/baldi/internal/ai"
	"github.com/baldionna/baldi/internal/chats"
	"github.com/baldionna/baldi/internal/config"
)

const geminiHost = "https://generativelanguage.googleapis.com"

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and provider connectivity",
	Long: `Run a health check on your baldi setup.
Verifies the config directory, the provider credential and endpoint,
web search keys and the local chat store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)
		yellow := color.New(color.FgYellow)
		dim := color.New(color.FgHiBlack)
		cyan := color.New(color.FgCyan, color.Bold)

		cyan.Fprintf(os.Stderr, "\n  🩺 baldi doctor\n\n")

		pass, fail, warn := 0, 0, 0

		check := func(name string, fn func() (string, error)) {
			detail, err := fn()
			if err != nil {
				if strings.HasPrefix(err.Error(), "warn:") {
					yellow.Fprintf(os.Stderr, "  ⚠ %s\n", name)
					dim.Fprintf(os.Stderr, "    %s\n", strings.TrimPrefix(err.Error(), "warn:"))
					warn++
				} else {
					red.Fprintf(os.Stderr, "  ✗ %s\n", name)
					dim.Fprintf(os.Stderr, "    %s\n", err.Error())
					fail++
				}
			} else {
				green.Fprintf(os.Stderr, "  ✓ %s", name)
				if detail != "" {
					dim.Fprintf(os.Stderr, ": %s", detail)
				}
				fmt.Fprintln(os.Stderr)
				pass++
			}
		}

		check("baldi binary installed", func() (string, error) {
			path, err := os.Executable()
			if err != nil {
				return "", fmt.Errorf("could not find baldi binary")
			}
			return path, nil
		})

		check("Config directory", func() (string, error) {
			dir := config.Dir()
			info, err := os.Stat(dir)
			if err != nil {
				return "", fmt.Errorf("warn:%s not found, it will be created on first use", dir)
			}
			if !info.IsDir() {
				return "", fmt.Errorf("%s exists but is not a directory", dir)
			}
			return dir, nil
		})

		cfg, cfgErr := loadConfig()
		check("Config file", func() (string, error) {
			if cfgErr != nil {
				return "", cfgErr
			}
			return fmt.Sprintf("provider %s, persona %s", cfg.Provider, cfg.Persona), nil
		})
		if cfgErr != nil {
			cfg = &config.Config{Provider: "openrouter"}
		}

		check(fmt.Sprintf("API key (%s)", cfg.Provider), func() (string, error) {
			if cfg.APIKey(cfg.Provider) == "" {
				return "", fmt.Errorf("run: baldi config set-key %s <api-key>", cfg.Provider)
			}
			return maskKey(cfg.APIKey(cfg.Provider)), nil
		})

		check("Provider reachable", func() (string, error) {
			target := providerURL(cfg)
			if target == "" {
				return "", fmt.Errorf("unknown provider %q", cfg.Provider)
			}
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Head(target)
			if err != nil {
				return "", fmt.Errorf("could not connect to %s", target)
			}
			resp.Body.Close()
			// Any HTTP answer proves DNS, TLS and routing work.
			return fmt.Sprintf("%s (%d)", target, resp.StatusCode), nil
		})

		check("Web search key (serper)", func() (string, error) {
			if cfg.Search.SerperKey == "" {
				return "", fmt.Errorf("warn:--web is unavailable, run: baldi config set-key serper <api-key>")
			}
			return maskKey(cfg.Search.SerperKey), nil
		})

		check("Chat store", func() (string, error) {
			all, err := chats.Default().List()
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d chats", len(all)), nil
		})

		check("System info", func() (string, error) {
			return fmt.Sprintf("%s/%s, baldi %s", runtime.GOOS, runtime.GOARCH, version), nil
		})

		fmt.Fprintln(os.Stderr)
		total := pass + fail + warn
		if fail == 0 && warn == 0 {
			green.Fprintf(os.Stderr, "  All %d checks passed. You're good to go.\n\n", total)
		} else if fail == 0 {
			yellow.Fprintf(os.Stderr, "  %d passed, %d warnings. Everything works, but some things could be better.\n\n", pass, warn)
		} else {
			red.Fprintf(os.Stderr, "  %d passed, %d failed, %d warnings. Fix the failures above.\n\n", pass, fail, warn)
		}

		return nil
	},
}

func providerURL(cfg *config.Config) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	if cfg.Provider == "gemini" {
		return geminiHost
	}
	if e, ok := ai.LookupEndpoint(cfg.Provider); ok {
		return e.URL
	}
	return ""
}
