package cmd

import (

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/baldionna/baldi/internal/ai"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the available personas",
	RunE: func(cmd *cobra.Command, args []string) error {
		cyan := color.New(color.FgCyan)
		dim := color.New(color.FgHiBlack)
		for _, p := range ai.Personas() {
			cyan.Printf("  %-10s ", p.Name)
			dim.Println(p.Summary)
		}
		return nil
	},
}
