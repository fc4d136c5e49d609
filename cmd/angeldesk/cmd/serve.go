package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sacha-rebbouh/angeldesk/internal/adapters/deals"
	"github.com/sacha-rebbouh/angeldesk/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the angeldesk API server.

The server exposes analyses over REST and streams pipeline progress
over Server-Sent Events. With --watch, deal files dropped into the
inbox directory are ingested and analyzed automatically.

Examples:
  # Start with defaults (:8080)
  angeldesk serve

  # Custom bind address with inbox watching
  angeldesk serve --addr 0.0.0.0:3000 --watch`,
	RunE: runServe,
}

var (
	serveAddr  string
	serveWatch bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "",
		"address to bind to (default from config)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false,
		"watch the deals inbox and analyze dropped files")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	server := api.New(a.cfg.Server, a.store, a.orch, a.resumer, a.bus, a.log)
	server.Start()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var watcher *deals.InboxWatcher
	if serveWatch {
		inbox := a.cfg.Deals.Inbox
		if inbox == "" {
			inbox = a.cfg.Deals.Dir + "/inbox"
		}
		watcher, err = deals.NewInboxWatcher(inbox, a.cfg.Deals.Dir, a.log)
		if err != nil {
			return err
		}
		go consumeInbox(ctx, a, watcher)
		a.log.Info("watching deals inbox", "dir", inbox)
	}

	<-ctx.Done()

	if watcher != nil {
		if err := watcher.Close(); err != nil {
			a.log.Warn("closing inbox watcher", "error", err.Error())
		}
	}
	return server.Shutdown(context.Background())
}

// consumeInbox starts an analysis for every deal the watcher ingests.
// Runs are sequential: a deal drop storm should queue, not fan out into
// concurrent completions against the same budget.
func consumeInbox(ctx context.Context, a *app, watcher *deals.InboxWatcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case dealID := <-watcher.Deals():
			a.log.Info("analyzing ingested deal", "deal_id", dealID)
			if _, err := a.orch.Start(ctx, dealID, nil); err != nil {
				a.log.Error("inbox analysis failed", "deal_id", dealID, "error", err.Error())
			}
		}
	}
}
