package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/baldionna/baldi/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage statistics and streaming metrics",
	Long: `Display a dashboard of your baldi usage: session counts, completion
rate, time to first token, guard trips and most-used models.

Data is collected automatically and stored locally in ~/.baldionna/stats.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := stats.Summarize()
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}

		cyan := color.New(color.FgCyan, color.Bold)
		green := color.New(color.FgGreen)
		yellow := color.New(color.FgYellow)
		dim := color.New(color.FgHiBlack)

		cyan.Fprintf(os.Stderr, "\n  📊 baldi stats\n\n")

		if summary.TotalSessions == 0 {
			dim.Fprintln(os.Stderr, "  No data yet. Ask baldi something and come back.")
			fmt.Fprintln(os.Stderr)
			return nil
		}

		green.Fprintf(os.Stderr, "  Sessions:    ")
		fmt.Fprintf(os.Stderr, "%d total", summary.TotalSessions)
		dim.Fprintf(os.Stderr, "  (%d today, %d this week)\n", summary.TodayCount, summary.ThisWeekCount)

		green.Fprintf(os.Stderr, "  Completed:   ")
		if summary.CompletionRate >= 90 {
			fmt.Fprintf(os.Stderr, "%.0f%%\n", summary.CompletionRate)
		} else {
			yellow.Fprintf(os.Stderr, "%.0f%%\n", summary.CompletionRate)
		}

		green.Fprintf(os.Stderr, "  First token: ")
		fmt.Fprintf(os.Stderr, "%dms avg\n", summary.AvgFirstDeltaMs)
		green.Fprintf(os.Stderr, "  Duration:    ")
		fmt.Fprintf(os.Stderr, "%dms avg\n", summary.AvgDurationMs)
		green.Fprintf(os.Stderr, "  Output:      ")
		fmt.Fprintf(os.Stderr, "%d chars\n", summary.TotalChars)

		if len(summary.OutcomeBreakdown) > 0 {
			fmt.Fprintln(os.Stderr)
			cyan.Fprintln(os.Stderr, "  Outcomes")
			for _, outcome := range sortedKeys(summary.OutcomeBreakdown) {
				count := summary.OutcomeBreakdown[outcome]
				pct := float64(count) / float64(summary.TotalSessions) * 100
				bar := strings.Repeat("█", int(pct/5))
				dim.Fprintf(os.Stderr, "  %-10s ", outcome)
				fmt.Fprintf(os.Stderr, "%s %d (%.0f%%)\n", bar, count, pct)
			}
		}

		if len(summary.TripBreakdown) > 0 {
			fmt.Fprintln(os.Stderr)
			cyan.Fprintln(os.Stderr, "  Guard Trips")
			for _, trip := range sortedKeys(summary.TripBreakdown) {
				dim.Fprintf(os.Stderr, "  %-18s ", trip)
				fmt.Fprintf(os.Stderr, "%d\n", summary.TripBreakdown[trip])
			}
		}

		if len(summary.SubcmdBreakdown) > 0 {
			fmt.Fprintln(os.Stderr)
			cyan.Fprintln(os.Stderr, "  Subcommands")
			for _, sub := range sortedKeys(summary.SubcmdBreakdown) {
				dim.Fprintf(os.Stderr, "  %-14s ", sub)
				fmt.Fprintf(os.Stderr, "%d\n", summary.SubcmdBreakdown[sub])
			}
		}

		if len(summary.TopModels) > 0 {
			fmt.Fprintln(os.Stderr)
			cyan.Fprintln(os.Stderr, "  Top Models")
			for i, mc := range summary.TopModels {
				dim.Fprintf(os.Stderr, "  %d. ", i+1)
				fmt.Fprintf(os.Stderr, "%s ", mc.Model)
				dim.Fprintf(os.Stderr, "(%dx)\n", mc.Count)
			}
		}

		fmt.Fprintln(os.Stderr)
		return nil
	},
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
