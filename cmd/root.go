// Package cmd provides the stranka command-line interface.
//
// Configuration is resolved from multiple sources with clear precedence:
//
//  1. Command-line flags (--port, --environment, ...), highest priority
//  2. STRANKA_* environment variables (STRANKA_SERVER_PORT, ...)
//  3. The configuration file (.stranka.yml by default, or --config)
//
// All keys follow the STRANKA_<SECTION>_<OPTION> pattern in the environment,
// e.g. STRANKA_SITE_DEFAULT_LOCALE or STRANKA_SECURITY_FRAME_OPTIONS.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stranka-dev/stranka/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "stranka",
	Short: "Bilingual marketing and blog site server",
	Long: `Stranka serves a bilingual (English/Czech) marketing and blog site:
content pages and posts rendered from Markdown, per-visitor locale detection,
and a Content-Security-Policy with per-request nonces on every response.

The same binary runs both hosts:

  stranka serve      Origin server (renders the site)
  stranka edge       Edge proxy (decorates requests in front of the origin)
  stranka validate   Compare two deployment configs for locale/policy drift`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .stranka.yml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("STRANKA_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".stranka")
	}

	viper.SetEnvPrefix("STRANKA")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Missing config files are fine; defaults and environment cover the rest.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger() logging.Logger {
	return logging.New(&logging.Config{
		Level:  logging.ParseLevel(viper.GetString("log.level")),
		Format: viper.GetString("log.format"),
		Output: os.Stdout,
	})
}
