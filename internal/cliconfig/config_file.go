package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Format       string `toml:"format"`
	Compression  string `toml:"compression"`
	BatchSize    int    `toml:"batch_size"`
	MaxRows      *int   `toml:"max_rows"`
	RowGroupRows int    `toml:"row_group_rows"`
	BPFFile      string `toml:"bpf_file"`
	OutputDir    string `toml:"output_dir"`
	WatchDir     string `toml:"watch_dir"`
	StateDir     string `toml:"state_dir"`
	Debounce     string `toml:"debounce"`
	Once         *bool  `toml:"once"`
	LogLevel     string `toml:"log_level"`
	LogFormat    string `toml:"log_format"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.capframe/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".capframe", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("format", fc.Format, &cfg.Format)
	s.setString("compression", fc.Compression, &cfg.Compression)
	s.setString("bpf-file", fc.BPFFile, &cfg.BPFFile)
	s.setString("output-dir", fc.OutputDir, &cfg.OutputDir)
	s.setString("dir", fc.WatchDir, &cfg.WatchDir)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)

	if err := s.setDuration("debounce", fc.Debounce, &cfg.Debounce); err != nil {
		return err
	}

	s.setInt("batch-size", fc.BatchSize, &cfg.BatchSize)
	s.setLimit("max-rows", fc.MaxRows, &cfg.MaxRows)
	s.setInt("row-group-rows", fc.RowGroupRows, &cfg.RowGroupRows)

	s.setBool("once", fc.Once, &cfg.Once)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
