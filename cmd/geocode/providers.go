package main

import (
	"fmt"
	"slices"

	"github.com/couchcryptid/geocode-session-service/internal/adapter/geocoder"
	"github.com/couchcryptid/geocode-session-service/internal/observability"
	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List known providers and the configured chain",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger := observability.NewLogger(cfg, cmd.ErrOrStderr())
		metrics := observability.NewMetrics()

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-14s %-8s %-10s %-11s %s\n", "PROVIDER", "ENABLED", "RATE", "QUOTA", "ENDPOINT")
		for _, key := range geocoder.Known() {
			c, err := geocoder.New(key, providerOptions(cfg), metrics, logger)
			if err != nil {
				return err
			}
			enabled := "-"
			if i := slices.Index(cfg.Providers, key); i >= 0 {
				enabled = fmt.Sprintf("#%d", i+1)
			}
			fmt.Fprintf(w, "%-14s %-8s %-10s %-11s %s\n", key, enabled, c.RateLimit(), c.QuotaReset(), c.BaseURL())
		}
		fmt.Fprintf(w, "\nrequire exact: %t\n", cfg.RequireExact)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
