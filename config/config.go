// Package config holds the tender engine settings: defaults, then a .env
// file and process environment, then command line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tenderboq/services"
)

// Environment variable names.
const (
	EnvMinBidders      = "TENDER_MIN_BIDDERS"
	EnvLookaheadWindow = "TENDER_LOOKAHEAD_WINDOW"
	EnvPatternFile     = "TENDER_PATTERN_FILE"
	EnvSeedDemo        = "TENDER_SEED_DEMO"
)

type Config struct {
	// MinBidders is the bidder count below which a comparable sheet warns.
	MinBidders int
	// LookaheadWindow is how many rows the classifier scans for sub-items.
	LookaheadWindow int
	// PatternFile optionally extends the classifier's pattern table.
	PatternFile string
	// SeedDemo creates the demo tender on startup.
	SeedDemo bool
}

func Default() *Config {
	return &Config{
		MinBidders:      services.DefaultMinBidders,
		LookaheadWindow: services.DefaultLookaheadWindow,
	}
}

// LoadEnv loads envFile into the process environment when it exists, then
// applies the TENDER_* variables. Variables already set in the environment
// win over the file.
func (c *Config) LoadEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if v, ok := lookup(EnvMinBidders); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("%s: want a positive integer, got %q", EnvMinBidders, v)
		}
		c.MinBidders = n
	}
	if v, ok := lookup(EnvLookaheadWindow); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("%s: want a positive integer, got %q", EnvLookaheadWindow, v)
		}
		c.LookaheadWindow = n
	}
	if v, ok := lookup(EnvPatternFile); ok {
		c.PatternFile = v
	}
	if v, ok := lookup(EnvSeedDemo); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: want a boolean, got %q", EnvSeedDemo, v)
		}
		c.SeedDemo = b
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// BindFlags registers persistent flags on cmd. Flag defaults are the values
// already loaded, so an unset flag keeps the env or default value.
func (c *Config) BindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.IntVar(&c.MinBidders, "min-bidders", c.MinBidders, "bidders needed for a valid comparable sheet")
	flags.IntVar(&c.LookaheadWindow, "lookahead-window", c.LookaheadWindow, "rows scanned for sub-items below a group")
	flags.StringVar(&c.PatternFile, "pattern-file", c.PatternFile, "YAML file with extra row classification patterns")
	flags.BoolVar(&c.SeedDemo, "seed-demo", c.SeedDemo, "create the demo tender on startup")
}

// Validate rejects values that flags could have set out of range.
func (c *Config) Validate() error {
	if c.MinBidders < 1 {
		return fmt.Errorf("min-bidders must be positive, got %d", c.MinBidders)
	}
	if c.LookaheadWindow < 1 {
		return fmt.Errorf("lookahead-window must be positive, got %d", c.LookaheadWindow)
	}
	return nil
}

// Classifier builds the row classifier from the configured pattern table.
func (c *Config) Classifier() (*services.Classifier, error) {
	patterns, err := services.LoadPatternFile(c.PatternFile)
	if err != nil {
		return nil, err
	}
	return services.NewClassifier(patterns, c.LookaheadWindow), nil
}
