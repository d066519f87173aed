package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RocioCM/tinyrust-compiler/server"
)

func newLSPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the TinyRust+ language server on stdio",
		Long: `Starts a Language Server Protocol server on stdin/stdout. Editors get
diagnostics for open tree documents (JSON or YAML) on every change, hover
summaries for class names and go-to-definition for classes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := server.NewLSP(a.opts)
			defer s.Stop()
			return s.Run()
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the check service over Connect (HTTP/JSON)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = a.manifest.Server.Addr
			}

			var opts []server.ServerOption
			c, err := a.openCache()
			if err != nil {
				return err
			}
			if c != nil {
				opts = append(opts, server.WithCache(c))
			}

			srv := server.New(a.opts, opts...)
			defer srv.Stop()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe(addr) }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
				log.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":4567", "listen address")
	return cmd
}
