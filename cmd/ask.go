package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baldionna/baldi/internal/ai"
	"github.com/baldionna/baldi/internal/chats"
	"github.com/baldionna/baldi/internal/config"
	"github.com/baldionna/baldi/internal/logging"
	"github.com/baldionna/baldi/internal/search"
	"github.com/baldionna/baldi/internal/stats"
	"github.com/baldionna/baldi/internal/ui"
)

const (
	askSlot       = "ask"
	maxStdinBytes = 8000
)

func ask(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("please provide a question\n\nUsage: baldi <question>\nExample: baldi ¿qué es un agujero negro?")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := ai.NewClient(cfg)
	if err != nil {
		return err
	}

	prompt := strings.Join(args, " ")
	if piped := readStdin(); piped != "" {
		prompt = prompt + "\n\n" + piped
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	slot := askSlot
	var (
		store   *chats.Store
		history []ai.Message
	)
	if flagChat != "" {
		store = chats.Default()
		chat, err := store.Get(flagChat)
		if err != nil {
			return fmt.Errorf("failed to open chat %s: %w", flagChat, err)
		}
		history = chat.History()
		if _, err := store.Append(chat.ID, chats.Message{Role: ai.RoleUser, Content: prompt}); err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
		slot = chat.ID
	}

	sent := prompt
	if flagWeb {
		sent = augment(ctx, cfg, prompt)
	}

	req, err := client.NewRequest(sent, history, requestOptions()...)
	if err != nil {
		return err
	}

	out, err := streamReply(ctx, os.Stdout, client, slot, req, "")
	recordStats(client, out, "ask", flagWeb)
	if msg, ok := chats.Reply(out); ok && store != nil {
		if _, sErr := store.Append(slot, msg); sErr != nil {
			logging.L().Warn("failed to save reply", zap.String("chat", slot), zap.Error(sErr))
		}
	}
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return nil
}

// streamReply runs req with a spinner until the first delta and renders the
// reply to w.
func streamReply(ctx context.Context, w io.Writer, client *ai.Client, slot string, req ai.Request, prefix string) (ai.Outcome, error) {
	sp := ui.NewSpinner("Thinking...")
	sp.Start()
	return ui.RenderStream(w, client.Stream(ctx, slot, req), prefix, sp.Stop)
}

// augment rewrites prompt with web results. Search failures fall back to the
// plain prompt.
func augment(ctx context.Context, cfg *config.Config, prompt string) string {
	sp := ui.NewSpinner("Searching the web...")
	sp.Start()
	aug, err := search.NewAugmenter(cfg.Search).Augment(ctx, prompt)
	if err != nil {
		sp.Fail("Web search failed")
		color.New(color.FgHiBlack).Fprintf(os.Stderr, "    %v\n", err)
		return prompt
	}
	sp.Success(fmt.Sprintf("%d results in %s", len(aug.Pages), aug.Duration.Round(100*time.Millisecond)))
	return aug.Prompt
}

func recordStats(client *ai.Client, out ai.Outcome, subcommand string, web bool) {
	r := stats.FromOutcome(out)
	r.Provider = client.Provider()
	r.Model = client.Model()
	r.Persona = client.Persona().Name
	r.Subcommand = subcommand
	r.Web = web
	if err := stats.Save(r); err != nil {
		logging.L().Debug("failed to save stats", zap.Error(err))
	}
}

// readStdin reads piped input if available.
func readStdin() string {
	info, err := os.Stdin.Stat()
	if err != nil {
		return ""
	}
	if (info.Mode() & os.ModeCharDevice) != 0 {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(os.Stdin, maxStdinBytes+1))
	if err != nil {
		return ""
	}
	s := strings.TrimSpace(string(data))
	if len(s) > maxStdinBytes {
		s = s[:maxStdinBytes] + "\n... (truncated)"
	}
	return s
}
