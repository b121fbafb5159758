package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/baldionna/baldi/internal/ai"
	"github.com/baldionna/baldi/internal/chats"
	"github.com/baldionna/baldi/internal/render"
)

var (
	chatsLimit int
	exportOut  string
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List and manage saved chats",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, err := chats.Default().List()
		if err != nil {
			return fmt.Errorf("failed to load chats: %w", err)
		}
		if len(all) == 0 {
			fmt.Println("No chats yet. Start one with: baldi chat")
			return nil
		}
		if chatsLimit > 0 && len(all) > chatsLimit {
			all = all[:chatsLimit]
		}

		dim := color.New(color.FgHiBlack)
		cyan := color.New(color.FgCyan)
		for _, c := range all {
			dim.Printf("[%s] ", c.UpdatedAt.Format("2006-01-02 15:04"))
			cyan.Printf("%s ", c.ID)
			fmt.Printf("%s ", c.Name)
			dim.Printf("(%d messages)\n", len(c.Messages))
		}
		return nil
	},
}

var chatsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a saved chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := chats.Default().Get(args[0])
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan, color.Bold)
		green := color.New(color.FgGreen)
		yellow := color.New(color.FgYellow)
		cyan.Printf("\n  %s\n\n", c.Name)
		for _, m := range c.Messages {
			if m.Role == ai.RoleUser {
				green.Print("  tú → ")
			} else {
				cyan.Print("  baldi → ")
			}
			fmt.Println(m.Content)
			if m.Outcome != "" && m.Outcome != string(ai.Completed) {
				yellow.Printf("  [%s]\n", m.Outcome)
			}
			fmt.Println()
		}
		return nil
	},
}

var chatsRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a saved chat",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := chats.Default().Rename(args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to rename chat: %w", err)
		}
		fmt.Printf("Chat renamed to %q.\n", c.Name)
		return nil
	},
}

var chatsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := chats.Default().Delete(args[0]); err != nil {
			return fmt.Errorf("failed to delete chat: %w", err)
		}
		fmt.Println("Chat deleted.")
		return nil
	},
}

var chatsExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a saved chat as an HTML page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := chats.Default().Get(args[0])
		if err != nil {
			return err
		}

		w := os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", exportOut, err)
			}
			defer f.Close()
			w = f
		}
		if err := render.Transcript(w, c); err != nil {
			return fmt.Errorf("failed to export chat: %w", err)
		}
		if exportOut != "" {
			color.New(color.FgGreen).Fprintf(os.Stderr, "  ✓ Saved to %s\n", exportOut)
		}
		return nil
	},
}

func init() {
	chatsCmd.Flags().IntVarP(&chatsLimit, "limit", "n", 20, "Number of chats to show")
	chatsExportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Write to file instead of stdout")

	chatsCmd.AddCommand(chatsShowCmd)
	chatsCmd.AddCommand(chatsRenameCmd)
	chatsCmd.AddCommand(chatsDeleteCmd)
	chatsCmd.AddCommand(chatsExportCmd)
}
