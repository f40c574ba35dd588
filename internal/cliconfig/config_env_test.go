package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"CAPFRAME_FORMAT":      "arrows",
				"CAPFRAME_COMPRESSION": "lz4",
				"CAPFRAME_BATCH_SIZE":  "2048",
				"CAPFRAME_MAX_ROWS":    "99",
				"CAPFRAME_WATCH_DIR":   "/env/caps",
				"CAPFRAME_DEBOUNCE":    "10s",
				"CAPFRAME_ONCE":        "1",
				"CAPFRAME_LOG_FORMAT":  "json",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Format:      "arrows",
				Compression: "lz4",
				BatchSize:   2048,
				MaxRows:     99,
				WatchDir:    "/env/caps",
				Debounce:    10 * time.Second,
				Once:        true,
				LogFormat:   "json",
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"CAPFRAME_FORMAT":     "arrow",
				"CAPFRAME_BATCH_SIZE": "64",
			},
			changed:  map[string]bool{"format": true},
			initial:  Config{Format: "parquet"},
			expected: Config{Format: "parquet", BatchSize: 64},
		},
		{
			name:    "returns error for invalid duration",
			envVars: map[string]string{"CAPFRAME_DEBOUNCE": "not-a-duration"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid int",
			envVars: map[string]string{"CAPFRAME_BATCH_SIZE": "lots"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:     "non-positive int is ignored",
			envVars:  map[string]string{"CAPFRAME_BATCH_SIZE": "0"},
			changed:  map[string]bool{},
			initial:  Config{BatchSize: 5},
			expected: Config{BatchSize: 5},
		},
		{
			name:     "zero max rows is applied",
			envVars:  map[string]string{"CAPFRAME_MAX_ROWS": "0"},
			changed:  map[string]bool{},
			initial:  Config{MaxRows: -1},
			expected: Config{MaxRows: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyEnvConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnvConfig() unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

// Integration test: precedence order (CLI > Env > File)
func TestConfigPrecedence(t *testing.T) {
	fileConf := FileConfig{
		Format:    "arrow",
		BatchSize: 100,
		OutputDir: "/file/out",
	}

	t.Setenv("CAPFRAME_FORMAT", "arrows")
	t.Setenv("CAPFRAME_BATCH_SIZE", "200")

	// Simulate CLI flags
	changed := map[string]bool{
		"format": true,
	}

	cfg := DefaultConfig()
	cfg.Format = "parquet"

	if err := ApplyFileConfig(&cfg, fileConf, changed); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}

	if cfg.Format != "parquet" {
		t.Errorf("Format = %v, want parquet (CLI should win)", cfg.Format)
	}
	if cfg.BatchSize != 200 {
		t.Errorf("BatchSize = %v, want 200 (env should override file)", cfg.BatchSize)
	}
	if cfg.OutputDir != "/file/out" {
		t.Errorf("OutputDir = %v, want /file/out (file should set)", cfg.OutputDir)
	}
}
