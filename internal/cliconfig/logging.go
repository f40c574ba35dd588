package cliconfig

import (
	"os"

	"github.com/bft-labs/capframe/pkg/log"
)

// Logger builds the CLI logger on stderr from the configured level and format.
func Logger(cfg Config) *log.ZerologAdapter {
	return log.NewZerolog(os.Stderr, cfg.LogFormat, cfg.LogLevel)
}
