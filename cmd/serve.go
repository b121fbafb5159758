package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/baldionna/baldi/internal/ai"
	"github.com/baldionna/baldi/internal/chats"
	"github.com/baldionna/baldi/internal/search"
	"github.com/baldionna/baldi/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve saved chats over a local HTTP API",
	Long: `Start a local HTTP API that streams replies as server-sent events.

  GET    /api/v1/health
  GET    /api/v1/chats
  POST   /api/v1/chats
  GET    /api/v1/chats/:id
  PATCH  /api/v1/chats/:id         {"name": "..."}
  DELETE /api/v1/chats/:id
  POST   /api/v1/chats/:id/messages {"prompt": "...", "web": false}
  DELETE /api/v1/chats/:id/stream`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := ai.NewClient(cfg)
		if err != nil {
			return err
		}
		addr := cfg.Listen
		if serveAddr != "" {
			addr = serveAddr
		}

		srv := server.New(client, chats.Default(), search.NewAugmenter(cfg.Search))
		srv.OnOutcome = func(out ai.Outcome, web bool) {
			recordStats(client, out, "serve", web)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		color.New(color.FgCyan, color.Bold).Fprintf(os.Stderr, "\n  baldi serve")
		color.New(color.FgHiBlack).Fprintf(os.Stderr, "  http://%s (%s · %s)\n\n", addr, client.Provider(), client.Model())

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Start(addr)
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "listen", "", "Address to listen on (default from config, 127.0.0.1:8787)")
}
