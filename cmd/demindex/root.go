package main

import (
	"os"

	"github.com/hauke96/sigolo/v2"
	"github.com/spf13/cobra"

	"github.com/twpayne/go-demindex"
)

// cfg is loaded before any command runs.
var cfg Config

var rootCmd = &cobra.Command{
	Use:   "demindex",
	Short: "Query directories of gridded elevation tiles",
	Long: `demindex indexes a directory of gridded elevation tiles and answers point
and area queries over them, loading only the tiles a query touches.

Configuration can be set via environment variables, a .env file, or
command-line flags. Flags take precedence over environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = LoadConfig(cmd)
		if err != nil {
			return err
		}
		setLogLevel(cfg.LogLevel)
		return nil
	},
}

// Execute runs the root command and exits on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setLogLevel(logLevel string) {
	switch logLevel {
	case "debug":
		sigolo.SetDefaultLogLevel(sigolo.LOG_DEBUG)
	case "trace":
		sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	default:
		sigolo.SetDefaultLogLevel(sigolo.LOG_INFO)
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("dir", "d", ".", "Directory containing elevation tiles")
	rootCmd.PersistentFlags().Float64("coverage", 0.3, "Minimum fraction of a map's tiles that must exist")
	rootCmd.PersistentFlags().Int("concurrency", 0, "Number of tiles read in parallel (default GOMAXPROCS)")
	rootCmd.PersistentFlags().Int("max-map-cells", demindex.DefaultMaxMapCells, "Largest number of cells in a stitched map")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "Logging verbosity: info, debug, or trace")
}
