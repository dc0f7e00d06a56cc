package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stranka-dev/stranka/internal/config"
	"github.com/stranka-dev/stranka/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the origin server",
	Long: `Start the origin server that renders the site.

In development mode (the default) the server watches the content directory,
reloads it on change, and pushes live-reload messages to connected browsers.
In production mode (--environment production) the CSP uses per-request nonces
and upgrade-insecure-requests, and the watcher and /ws endpoint are disabled.

Examples:
  stranka serve                                # development on :8080
  stranka serve --environment production       # production policy
  stranka serve --port 3000 --content ./site   # custom port and content dir`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().StringP("environment", "e", "development", "Deployment mode (development, production)")
	serveCmd.Flags().String("content", "content", "Content directory")

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.environment", serveCmd.Flags().Lookup("environment"))
	_ = viper.BindPFlag("content.dir", serveCmd.Flags().Lookup("content"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	srv, err := server.New(cfg, newLogger())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Start(ctx)
}
