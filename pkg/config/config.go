// Package config holds the tunable constants of the B+tree engine and a
// loader that can override them from a YAML file.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Name of the database.
const DBName = "bptreedb"

// Prompt printed by the REPL.
const Prompt = DBName + "> "

// Name of the REPL history file, tailed by the ".last" meta-command.
const HistoryFileName = "bptreedb_history.log"

// Default split thresholds, matching spec.md's §4.1 constants table.
const (
	DefaultLeafMax     = 13
	DefaultInternalMax = 340
)

// Config carries the tunables the B+tree engine and its page stores need.
// Zero values are not valid configs; use Default or Load.
type Config struct {
	// LeafMax is the maximum number of cells a leaf holds before it splits.
	LeafMax int `mapstructure:"leaf_max"`
	// InternalMax is the maximum number of keys an internal node holds
	// before it splits. Production deployments want this large (hundreds);
	// tests often set it small (e.g. 3) to exercise splits cheaply.
	InternalMax int `mapstructure:"internal_max"`
	// HistoryFile is the path the REPL appends issued commands to.
	HistoryFile string `mapstructure:"history_file"`
}

// Default returns the configuration spec.md's constants table describes.
func Default() Config {
	return Config{
		LeafMax:     DefaultLeafMax,
		InternalMax: DefaultInternalMax,
		HistoryFile: HistoryFileName,
	}
}

// Load reads a YAML configuration file at path, overlaying it onto Default.
// An empty path returns Default unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// LeafLeft returns the number of cells kept in the old leaf after a split.
func LeafLeft(leafMax int) int {
	return (leafMax + 1) - LeafRight(leafMax)
}

// LeafRight returns the number of cells moved to the new leaf after a split.
func LeafRight(leafMax int) int {
	return (leafMax + 1) / 2
}
