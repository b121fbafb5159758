package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/baldionna/baldi/internal/search"
)

var searchResults int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the web without asking the model",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		query := strings.Join(args, " ")
		resp, err := search.NewSerper(cfg.Search.SerperKey).Search(cmd.Context(), query, searchResults)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		cyan := color.New(color.FgCyan, color.Bold)
		green := color.New(color.FgGreen)
		dim := color.New(color.FgHiBlack)

		fmt.Println()
		if resp.AnswerBox != nil && resp.AnswerBox.Answer != "" {
			green.Printf("  → %s\n\n", resp.AnswerBox.Answer)
		}
		if len(resp.Organic) == 0 {
			dim.Println("  No results.")
			return nil
		}
		for i, r := range resp.Organic {
			cyan.Printf("  %d. %s\n", i+1, r.Title)
			dim.Printf("     %s\n", r.Link)
			if r.Snippet != "" {
				fmt.Printf("     %s\n", r.Snippet)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchResults, "num", "n", 5, "Number of results")
}
