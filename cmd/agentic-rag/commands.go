package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NiteeshPutla/agentic-rag/internal/adapters/filewatcher"
	"github.com/NiteeshPutla/agentic-rag/internal/app"
	httpserver "github.com/NiteeshPutla/agentic-rag/internal/infrastructure/http"
	"github.com/NiteeshPutla/agentic-rag/internal/infrastructure/mcp"
	"github.com/NiteeshPutla/agentic-rag/internal/infrastructure/tui"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "ingest <path|dir|gs://bucket/object>...",
		Short: "Extract, chunk and index documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Ingest(cmd.Context(), args, reset)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d documents (%d chunks)\n", report.Documents, report.Chunks)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "clear the index before adding documents")
	return cmd
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question from the indexed documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			printAnswer(cmd.OutOrStdout(), result, verbose)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "also print attempts, validation and sources")
	return cmd
}

func printAnswer(w io.Writer, r app.AskResult, verbose bool) {
	fmt.Fprintln(w, r.Answer)
	if !verbose {
		return
	}
	fmt.Fprintf(w, "\nattempts: %d, validated: %t\n", r.Attempts, r.Validated)
	for _, s := range r.Sources {
		fmt.Fprintf(w, "  - %s\n", s)
	}
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive terminal chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return tui.Run(cmd.Context(), a)
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr, uploads, docsRoot string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and chat page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, logger, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			server := a.Config().Server
			if addr != "" {
				server.Addr = addr
			}
			if uploads != "" {
				server.UploadDir = uploads
			}
			if docsRoot != "" {
				server.DocumentsRoot = docsRoot
			}
			return httpserver.NewServer(a, httpserver.Options{
				Addr:           server.Addr,
				UploadDir:      server.UploadDir,
				DocumentsRoot:  server.DocumentsRoot,
				AllowedOrigins: server.AllowedOrigins,
			}, logger).Start(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&uploads, "uploads", "", "directory for uploaded documents (default from config)")
	cmd.Flags().StringVar(&docsRoot, "documents-root", "", "directory or gs:// prefix JSON ingest requests may read from")
	return cmd
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var initial bool
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Keep the index in sync with a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, logger, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			dir := args[0]
			if initial {
				if report, err := a.Ingest(cmd.Context(), []string{dir}, false); err != nil {
					logger.Warn("initial ingestion failed", "dir", dir, "error", err)
				} else {
					logger.Info("initial ingestion finished", "documents", report.Documents, "chunks", report.Chunks)
				}
			}

			watcher, err := filewatcher.NewFSNotifyWatcher(a.Config().Ingest.Extensions, logger)
			if err != nil {
				return fmt.Errorf("creating file watcher: %w", err)
			}
			defer watcher.Stop()

			if err := a.Watch(cmd.Context(), watcher, dir); err != nil && cmd.Context().Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&initial, "initial", true, "ingest existing documents before watching")
	return cmd
}

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run as an MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, logger, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return mcp.Serve(cmd.Context(), a, version, logger)
		},
	}
}
