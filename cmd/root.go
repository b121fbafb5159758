package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/baldionna/baldi/internal/ai"
	"github.com/baldionna/baldi/internal/config"
	"github.com/baldionna/baldi/internal/logging"
)

var (
	flagProvider    string
	flagModel       string
	flagPersona     string
	flagWeb         bool
	flagMaxTokens   int
	flagTemperature float64
	flagChat        string
	flagDebug       bool
)

var rootCmd = &cobra.Command{
	Use:   "baldi [question]",
	Short: "Chat with BALDIONNA-ai from your terminal",
	Long: `baldi streams answers from OpenRouter, DeepSeek, Grok or Gemini and
stops runaway or repetitive output before it floods your terminal.

Examples:
  baldi ¿cuál es la capital de Australia?
  baldi --web noticias de hoy sobre energía solar
  baldi --persona analyst "compara Go y Rust para CLIs"
  baldi chat
  baldi serve`,
	Args:                       cobra.ArbitraryArgs,
	RunE:                       ask,
	SilenceUsage:               true,
	SilenceErrors:              true,
	TraverseChildren:           true,
	SuggestionsMinimumDistance: 1,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Init(config.Dir(), flagDebug); err != nil {
			fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

var version = "dev"

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "Provider to use (openrouter, deepseek, grok, gemini)")
	rootCmd.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "Model identifier sent to the provider")
	rootCmd.PersistentFlags().StringVarP(&flagPersona, "persona", "p", "", "Persona to answer as")
	rootCmd.PersistentFlags().BoolVarP(&flagWeb, "web", "w", false, "Augment the prompt with web search results")
	rootCmd.PersistentFlags().IntVar(&flagMaxTokens, "max-tokens", 0, "Maximum tokens to generate")
	rootCmd.PersistentFlags().Float64Var(&flagTemperature, "temperature", -1, "Sampling temperature (0-2)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Write debug entries to the log file")
	rootCmd.Flags().StringVar(&flagChat, "chat", "", "Continue a saved chat by id")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(chatsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(personasCmd)
}

// Execute is the entry point called from main.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the configuration and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if flagProvider != "" {
		cfg.Provider = flagProvider
	}
	if flagModel != "" {
		cfg.Model = flagModel
	}
	if flagPersona != "" {
		cfg.Persona = flagPersona
	}
	return cfg, nil
}

// requestOptions turns generation flags into request options.
func requestOptions() []ai.RequestOption {
	var opts []ai.RequestOption
	if flagMaxTokens > 0 {
		opts = append(opts, ai.WithMaxTokens(flagMaxTokens))
	}
	if flagTemperature >= 0 {
		opts = append(opts, ai.WithTemperature(flagTemperature))
	}
	return opts
}
