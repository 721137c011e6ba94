package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dualcannon",
	Short: "Intraday dual-cannon signal pipeline for A-share main boards",
	Long: `dualcannon unified CLI

Daily screen, opening volume-ratio watchlist, intraday formation
matching and order lifecycle in one process.

Usage:
  go run ./cmd/dualcannon [command]

Examples:
  go run ./cmd/dualcannon run
  go run ./cmd/dualcannon scan --date 20260828
  go run ./cmd/dualcannon api
  go run ./cmd/dualcannon scheduler`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
