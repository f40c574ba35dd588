package cliconfig

import "os"

// EnvPrefix prefixes every environment variable capframe reads.
const EnvPrefix = "CAPFRAME_"

// ApplyEnvConfig applies configuration from environment variables (CAPFRAME_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("format", os.Getenv(EnvPrefix+"FORMAT"), &cfg.Format)
	s.setString("compression", os.Getenv(EnvPrefix+"COMPRESSION"), &cfg.Compression)
	s.setString("bpf-file", os.Getenv(EnvPrefix+"BPF_FILE"), &cfg.BPFFile)
	s.setString("output-dir", os.Getenv(EnvPrefix+"OUTPUT_DIR"), &cfg.OutputDir)
	s.setString("dir", os.Getenv(EnvPrefix+"WATCH_DIR"), &cfg.WatchDir)
	s.setString("state-dir", os.Getenv(EnvPrefix+"STATE_DIR"), &cfg.StateDir)
	s.setString("log-level", os.Getenv(EnvPrefix+"LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv(EnvPrefix+"LOG_FORMAT"), &cfg.LogFormat)

	if err := s.setDuration("debounce", os.Getenv(EnvPrefix+"DEBOUNCE"), &cfg.Debounce); err != nil {
		return err
	}

	if err := s.setIntFromString("batch-size", os.Getenv(EnvPrefix+"BATCH_SIZE"), &cfg.BatchSize); err != nil {
		return err
	}
	if err := s.setLimitFromString("max-rows", os.Getenv(EnvPrefix+"MAX_ROWS"), &cfg.MaxRows); err != nil {
		return err
	}
	if err := s.setIntFromString("row-group-rows", os.Getenv(EnvPrefix+"ROW_GROUP_ROWS"), &cfg.RowGroupRows); err != nil {
		return err
	}

	s.setBoolFromString("once", os.Getenv(EnvPrefix+"ONCE"), &cfg.Once)

	return nil
}
