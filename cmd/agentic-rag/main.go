package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NiteeshPutla/agentic-rag/internal/app"
	"github.com/NiteeshPutla/agentic-rag/internal/config"
)

var version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "agentic-rag",
		Short:         "Ask grounded questions about your PDF documents",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "path to YAML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newIngestCmd(opts),
		newAskCmd(opts),
		newChatCmd(opts),
		newServeCmd(opts),
		newWatchCmd(opts),
		newMCPCmd(opts),
	)
	return root
}

// setup loads configuration, installs the process logger and builds the App.
// Logs go to stderr so stdout stays clean for answers and the MCP stream.
func setup(ctx context.Context, opts *rootOptions) (*app.App, *slog.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	logger := app.NewLogger(cfg.Log, cfg.SlogLevel(), os.Stderr)
	slog.SetDefault(logger)

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}
