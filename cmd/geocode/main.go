// Command geocode resolves location attributes of JSON-lines records into
// coordinates by trying the configured geocoding providers in order.
//
// Usage:
//
//	geocode run --input places.jsonl --attr street=address --attr city=town \
//	  --default country=fr --job-ref import-42 > resolved.jsonl
//	geocode providers
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "geocode",
	Short: "multi-provider batch geocoding",
	Long: `
geocode turns street, city, postal code and similar attributes of arbitrary
records into WGS84 coordinates. Providers are tried in a fixed order until
one returns a single, precise enough result. Every run keeps an audit log
and counters that are published as session snapshots.

Configuration is read from the environment (and a .env file if present).
`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
