package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/capframe/pkg/log"
	"github.com/bft-labs/capframe/pkg/sink"
	"github.com/bft-labs/capframe/pkg/source"
)

// Config holds CLI configuration for capframe.
type Config struct {
	Format       string
	Compression  string
	BatchSize    int
	MaxRows      int // -1 reads every packet
	RowGroupRows int
	BPFFile      string

	OutputDir string
	WatchDir  string
	StateDir  string
	Debounce  time.Duration
	Once      bool

	LogLevel  string
	LogFormat string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Format:    string(sink.FormatParquet),
		BatchSize: source.DefaultBatchSize,
		MaxRows:   -1,
		Debounce:  2 * time.Second,
		LogLevel:  "info",
		LogFormat: log.FormatConsole,
		StateDir:  "", // Derived from OutputDir during Validate
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	f, err := sink.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	c.Format = string(f)
	c.Compression = strings.ToLower(c.Compression)

	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.MaxRows < -1 {
		return fmt.Errorf("max rows must be -1 (all) or a row count")
	}
	if c.RowGroupRows < 0 {
		return fmt.Errorf("row group rows must not be negative")
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("debounce must be positive")
	}
	if err := log.ValidFormat(c.LogFormat); err != nil {
		return err
	}

	if c.StateDir == "" {
		c.StateDir = c.OutputDir
	}
	return nil
}

// ValidateWatch checks the settings watch mode needs on top of Validate.
func (c *Config) ValidateWatch() error {
	if c.WatchDir == "" {
		return fmt.Errorf("dir is required")
	}
	if c.OutputDir == "" {
		c.OutputDir = c.WatchDir
	}
	if c.StateDir == "" {
		c.StateDir = c.OutputDir
	}
	return nil
}

// RowCap returns the row cap to pass to the converter, or nil for no cap.
func (c Config) RowCap() *uint64 {
	if c.MaxRows < 0 {
		return nil
	}
	n := uint64(c.MaxRows)
	return &n
}

// SinkFormat returns the parsed output format. Call after Validate.
func (c Config) SinkFormat() sink.Format {
	return sink.Format(c.Format)
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setLimit sets an int value from a pointer if not nil and flag not changed.
// Unlike setInt it applies zero and negative values.
func (s *configSetter) setLimit(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setLimitFromString parses a string to int and sets the destination,
// zero and negative values included.
func (s *configSetter) setLimitFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
