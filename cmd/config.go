package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baldionna/baldi/internal/ai"
	"github.com/baldionna/baldi/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage baldi configuration",
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key <provider> <api-key>",
	Short: "Set an API key (openrouter, deepseek, grok, gemini, serper, jina)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetAPIKey(args[0], args[1]); err != nil {
			return fmt.Errorf("failed to save API key: %w", err)
		}
		fmt.Printf("API key for %s saved successfully.\n", args[0])
		return nil
	},
}

var setModelCmd = &cobra.Command{
	Use:   "set-model <model-name>",
	Short: "Set the model sent to the provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetModel(args[0]); err != nil {
			return fmt.Errorf("failed to save model: %w", err)
		}
		fmt.Printf("Model set to %s.\n", args[0])
		return nil
	},
}

var setProviderCmd = &cobra.Command{
	Use:   "set-provider <provider>",
	Short: "Set the default provider (" + strings.Join(config.Providers(), ", ") + ")",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetProvider(args[0]); err != nil {
			return fmt.Errorf("failed to save provider: %w", err)
		}
		fmt.Printf("Provider set to %s.\n", args[0])
		return nil
	},
}

var setPersonaCmd = &cobra.Command{
	Use:   "set-persona <persona>",
	Short: "Set the default persona",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := ai.LookupPersona(args[0]); err != nil {
			return err
		}
		if err := config.SetPersona(args[0]); err != nil {
			return fmt.Errorf("failed to save persona: %w", err)
		}
		fmt.Printf("Persona set to %s.\n", args[0])
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		model := cfg.Model
		if model == "" {
			model = "(provider default)"
		}
		fmt.Printf("Provider:   %s\n", cfg.Provider)
		fmt.Printf("Model:      %s\n", model)
		fmt.Printf("Persona:    %s\n", cfg.Persona)
		for _, p := range config.Providers() {
			fmt.Printf("%-11s %s\n", p+":", maskKey(cfg.APIKey(p)))
		}
		fmt.Printf("serper:     %s\n", maskKey(cfg.Search.SerperKey))
		fmt.Printf("jina:       %s\n", maskKey(cfg.Search.JinaKey))
		fmt.Printf("Listen:     %s\n", cfg.Listen)
		fmt.Printf("Config Dir: %s\n", config.Dir())
		return nil
	},
}

// maskKey hides all but the ends of a credential.
func maskKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 8:
		return "****"
	default:
		return key[:4] + "..." + key[len(key)-4:]
	}
}

func init() {
	configCmd.AddCommand(setKeyCmd)
	configCmd.AddCommand(setModelCmd)
	configCmd.AddCommand(setProviderCmd)
	configCmd.AddCommand(setPersonaCmd)
	configCmd.AddCommand(showCmd)
}
