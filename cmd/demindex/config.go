package main

import (
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/hauke96/sigolo/v2"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/twpayne/go-demindex"
)

const envPrefix = "DEMINDEX_"

var validate = validator.New()

// Config holds the command line configuration.
type Config struct {
	Dir         string  `validate:"required"`
	Coverage    float64 `validate:"gte=0,lte=1"`
	Concurrency int     `validate:"gte=0"`
	MaxMapCells int     `validate:"gt=0"`
	Addr        string  `validate:"required"`
	LogLevel    string  `validate:"oneof=info debug trace"`
}

// LoadConfig loads configuration from a .env file, environment variables,
// and command flags. Flags take precedence over environment variables.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		sigolo.Warnf("Unable to load .env file: %v", err)
	}

	cfg := Config{
		Dir:         getConfigString(cmd, "dir", "DIR", "."),
		Coverage:    getConfigFloat(cmd, "coverage", "COVERAGE", demindex.DefaultCoverageThreshold),
		Concurrency: getConfigInt(cmd, "concurrency", "CONCURRENCY", 0),
		MaxMapCells: getConfigInt(cmd, "max-map-cells", "MAX_MAP_CELLS", demindex.DefaultMaxMapCells),
		Addr:        getConfigString(cmd, "addr", "ADDR", ":8080"),
		LogLevel:    getConfigString(cmd, "log-level", "LOG_LEVEL", "info"),
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// NewIndex returns an Index of the tiles in cfg.Dir.
func (cfg Config) NewIndex() (*demindex.Index, error) {
	options := []demindex.IndexOption{
		demindex.WithCoverageThreshold(cfg.Coverage),
		demindex.WithMaxMapCells(cfg.MaxMapCells),
	}
	if cfg.Concurrency > 0 {
		options = append(options, demindex.WithConcurrency(cfg.Concurrency))
	}
	index, err := demindex.New(options...)
	if err != nil {
		return nil, err
	}
	n, err := index.AddDir(os.DirFS(cfg.Dir), ".")
	if err != nil {
		return nil, err
	}
	sigolo.Infof("Indexed %d tiles from %s in %d registries", n, cfg.Dir, len(index.Registries()))
	return index, nil
}

// getConfigString gets a string value from flag, then env, then default.
func getConfigString(cmd *cobra.Command, flagName, envName, defaultValue string) string {
	if cmd.Flags().Changed(flagName) {
		val, _ := cmd.Flags().GetString(flagName)
		return val
	}
	if v := os.Getenv(envPrefix + envName); v != "" {
		return v
	}
	return defaultValue
}

// getConfigInt gets an int value from flag, then env, then default.
func getConfigInt(cmd *cobra.Command, flagName, envName string, defaultValue int) int {
	if cmd.Flags().Changed(flagName) {
		val, _ := cmd.Flags().GetInt(flagName)
		return val
	}
	if v := os.Getenv(envPrefix + envName); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

// getConfigFloat gets a float64 value from flag, then env, then default.
func getConfigFloat(cmd *cobra.Command, flagName, envName string, defaultValue float64) float64 {
	if cmd.Flags().Changed(flagName) {
		val, _ := cmd.Flags().GetFloat64(flagName)
		return val
	}
	if v := os.Getenv(envPrefix + envName); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
