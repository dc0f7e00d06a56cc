package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stranka-dev/stranka/internal/config"
	"github.com/stranka-dev/stranka/internal/edge"
)

var edgeCmd = &cobra.Command{
	Use:   "edge",
	Short: "Start the edge proxy",
	Long: `Start the edge proxy that fronts the origin server.

The edge independently resolves each visitor's locale, mints a CSP nonce,
forwards both to the origin via internal headers, and stamps the production
security headers on every proxied response. It has no development mode.

Examples:
  stranka edge                                       # proxy :8443 -> :8080
  stranka edge --listen :80 --origin http://app:8080`,
	RunE: runEdge,
}

func init() {
	rootCmd.AddCommand(edgeCmd)

	edgeCmd.Flags().String("listen", ":8443", "Address to listen on")
	edgeCmd.Flags().String("origin", "http://localhost:8080", "Origin server URL")

	_ = viper.BindPFlag("edge.listen", edgeCmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("edge.origin_url", edgeCmd.Flags().Lookup("origin"))
}

func runEdge(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	proxy, err := edge.New(cfg, newLogger())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return proxy.Start(ctx)
}
