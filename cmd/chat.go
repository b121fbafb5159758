package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/baldionna/baldi/internal/ai"
	"github.com/baldionna/baldi/internal/chats"
	"github.com/baldionna/baldi/internal/config"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start a conversational session with BALDIONNA-ai. Messages are saved
locally and earlier turns are sent as context.

Press Ctrl-C while a reply is streaming to stop it.
Commands:
  /new           start a new chat
  /name <name>   rename the current chat
  /web           toggle web search for the next messages
  /exit          quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := ai.NewClient(cfg)
		if err != nil {
			return err
		}

		store := chats.Default()
		chat, err := openChat(store, flagChat)
		if err != nil {
			return err
		}

		r := &repl{cmd: cmd, cfg: cfg, client: client, store: store, chat: chat, web: flagWeb}
		return r.loop()
	},
}

func init() {
	chatCmd.Flags().StringVar(&flagChat, "chat", "", "Resume a saved chat by id")
}

func openChat(store *chats.Store, id string) (*chats.Chat, error) {
	if id == "" {
		chat, err := store.Create()
		if err != nil {
			return nil, fmt.Errorf("failed to create chat: %w", err)
		}
		return chat, nil
	}
	chat, err := store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("failed to open chat %s: %w", id, err)
	}
	return chat, nil
}

type repl struct {
	cmd    *cobra.Command
	cfg    *config.Config
	client *ai.Client
	store  *chats.Store
	chat   *chats.Chat
	web    bool
}

var (
	cyan  = color.New(color.FgCyan, color.Bold)
	dim   = color.New(color.FgHiBlack)
	green = color.New(color.FgGreen)
)

func (r *repl) loop() error {
	r.banner()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		green.Fprint(os.Stderr, "  tú → ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			quit, err := r.command(input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "  Error: %v\n\n", err)
			}
			if quit {
				break
			}
			continue
		}

		if err := r.turn(input); err != nil {
			fmt.Fprintf(os.Stderr, "  Error: %v\n\n", err)
		}
	}
	return scanner.Err()
}

func (r *repl) banner() {
	fmt.Fprintln(os.Stderr)
	cyan.Fprintf(os.Stderr, "  baldi chat")
	dim.Fprintf(os.Stderr, "  %s · %s · %s\n", r.client.Provider(), r.client.Model(), r.client.Persona().Name)
	dim.Fprintf(os.Stderr, "  %s (%s)\n", r.chat.Name, r.chat.ID)
	dim.Fprintf(os.Stderr, "  Type /exit to quit.\n\n")

	if n := len(r.chat.Messages); n > 0 {
		last := r.chat.Messages[n-1]
		if last.Role == ai.RoleAssistant {
			cyan.Fprint(os.Stderr, "  baldi → ")
			fmt.Fprintf(os.Stderr, "%s\n\n", last.Content)
		}
	}
}

// command handles a slash command and reports whether the session should end.
func (r *repl) command(input string) (bool, error) {
	name, arg, _ := strings.Cut(input, " ")
	switch name {
	case "/exit", "/quit":
		dim.Fprintf(os.Stderr, "\n  ¡Hasta luego! 👋\n\n")
		return true, nil
	case "/new":
		chat, err := r.store.Create()
		if err != nil {
			return false, err
		}
		r.chat = chat
		r.banner()
	case "/name":
		chat, err := r.store.Rename(r.chat.ID, arg)
		if err != nil {
			return false, err
		}
		r.chat = chat
		dim.Fprintf(os.Stderr, "  Renamed to %q.\n\n", chat.Name)
	case "/web":
		r.web = !r.web
		dim.Fprintf(os.Stderr, "  Web search %s.\n\n", onOff(r.web))
	default:
		return false, fmt.Errorf("unknown command %s", name)
	}
	return false, nil
}

// turn sends one user message and streams the reply. Ctrl-C cancels only
// the reply in flight.
func (r *repl) turn(input string) error {
	history := r.chat.History()
	chat, err := r.store.Append(r.chat.ID, chats.Message{Role: ai.RoleUser, Content: input})
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	r.chat = chat

	ctx, stop := signal.NotifyContext(r.cmd.Context(), os.Interrupt)
	defer stop()

	sent := input
	if r.web {
		sent = augment(ctx, r.cfg, input)
	}
	req, err := r.client.NewRequest(sent, history, requestOptions()...)
	if err != nil {
		return err
	}

	out, err := streamReply(ctx, os.Stderr, r.client, r.chat.ID, req, cyan.Sprint("  baldi → "))
	recordStats(r.client, out, "chat", r.web)
	if msg, ok := chats.Reply(out); ok {
		if chat, sErr := r.store.Append(r.chat.ID, msg); sErr == nil {
			r.chat = chat
		}
	}
	return err
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
