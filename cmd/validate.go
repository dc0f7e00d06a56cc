package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/stranka-dev/stranka/internal/config"
)

var (
	validateOriginConfig string
	validateEdgeConfig   string
	validateFormat       string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check origin and edge deployment configs for drift",
	Long: `Compare two deployment configuration files and report every place the
locale tables or security policy knobs disagree.

The origin and edge hosts compile the same detection and policy code, so the
only thing that can still drift between them is configuration: the
domain→locale table, default locale, display names, frame options, and the
CSP source origins. This command is meant to run in CI against the two
deployed config files.

Exit code 0 means the configs are synchronized; 1 means drift was detected
(each mismatch is listed).

Examples:
  stranka validate --origin deploy/origin.yml --edge deploy/edge.yml
  stranka validate --origin a.yml --edge b.yml --format json`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	bindValidateFlags(validateCmd.Flags())
	_ = validateCmd.MarkFlagRequired("origin")
	_ = validateCmd.MarkFlagRequired("edge")
}

func bindValidateFlags(fs *pflag.FlagSet) {
	fs.StringVar(&validateOriginConfig, "origin", "", "Origin deployment config file")
	fs.StringVar(&validateEdgeConfig, "edge", "", "Edge deployment config file")
	fs.StringVarP(&validateFormat, "format", "f", "text", "Output format (text, json)")
}

// Mismatch is one configuration field that differs between the two hosts.
type Mismatch struct {
	Field  string `json:"field"`
	Origin string `json:"origin"`
	Edge   string `json:"edge"`
}

// DriftReport is the validate command's output.
type DriftReport struct {
	Synchronized bool       `json:"synchronized"`
	Mismatches   []Mismatch `json:"mismatches,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	originCfg, err := config.LoadFile(validateOriginConfig)
	if err != nil {
		return err
	}
	edgeCfg, err := config.LoadFile(validateEdgeConfig)
	if err != nil {
		return err
	}

	report := DriftReport{Mismatches: compareConfigs(originCfg, edgeCfg)}
	report.Synchronized = len(report.Mismatches) == 0

	switch validateFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	default:
		printReport(report)
	}

	if !report.Synchronized {
		// Non-zero exit so CI fails on drift.
		cmd.SilenceUsage = true
		return fmt.Errorf("%d mismatch(es) between %s and %s", len(report.Mismatches), validateOriginConfig, validateEdgeConfig)
	}
	return nil
}

func printReport(report DriftReport) {
	if report.Synchronized {
		fmt.Println("✓ origin and edge configs are synchronized")
		return
	}
	fmt.Printf("✗ %d mismatch(es) detected:\n", len(report.Mismatches))
	for _, m := range report.Mismatches {
		fmt.Printf("  %-32s origin=%q edge=%q\n", m.Field, m.Origin, m.Edge)
	}
}

// compareConfigs diffs the sections that must be identical across hosts.
func compareConfigs(origin, edge *config.Config) []Mismatch {
	var out []Mismatch

	add := func(field, originVal, edgeVal string) {
		if originVal != edgeVal {
			out = append(out, Mismatch{Field: field, Origin: originVal, Edge: edgeVal})
		}
	}

	add("site.default_locale", origin.Site.DefaultLocale, edge.Site.DefaultLocale)

	for _, code := range unionKeys(keysOfLocales(origin.Site.Locales), keysOfLocales(edge.Site.Locales)) {
		o, oOK := origin.Site.Locales[code]
		e, eOK := edge.Site.Locales[code]
		switch {
		case !oOK:
			out = append(out, Mismatch{Field: "site.locales." + code, Origin: "(missing)", Edge: e.Name})
		case !eOK:
			out = append(out, Mismatch{Field: "site.locales." + code, Origin: o.Name, Edge: "(missing)"})
		default:
			add("site.locales."+code, o.Name, e.Name)
		}
	}

	for _, host := range unionKeys(keysOf(origin.Site.Domains), keysOf(edge.Site.Domains)) {
		o, oOK := origin.Site.Domains[host]
		e, eOK := edge.Site.Domains[host]
		switch {
		case !oOK:
			out = append(out, Mismatch{Field: "site.domains." + host, Origin: "(missing)", Edge: e})
		case !eOK:
			out = append(out, Mismatch{Field: "site.domains." + host, Origin: o, Edge: "(missing)"})
		default:
			add("site.domains."+host, o, e)
		}
	}

	add("security.frame_options", origin.Security.FrameOptions, edge.Security.FrameOptions)
	add("security.analytics_origin", origin.Security.AnalyticsOrigin, edge.Security.AnalyticsOrigin)
	add("security.fonts_origin", origin.Security.FontsOrigin, edge.Security.FontsOrigin)
	add("security.newsletter_origin", origin.Security.NewsletterOrigin, edge.Security.NewsletterOrigin)
	add("security.demo_embed_origin", origin.Security.DemoEmbedOrigin, edge.Security.DemoEmbedOrigin)

	return out
}

func keysOf(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func keysOfLocales(m map[string]config.SiteLocaleConfig) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func unionKeys(a, b []string) []string {
	set := make(map[string]bool, len(a)+len(b))
	for _, k := range a {
		set[k] = true
	}
	for _, k := range b {
		set[k] = true
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
