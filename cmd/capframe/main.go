package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/capframe/internal/cliconfig"
	"github.com/bft-labs/capframe/pkg/log"
)

const helpDescription = `
Convert classic pcap captures into Apache Arrow and Parquet files.

Packets are read in batches and written as rows with the columns
timestamp, packet_number, captured_length, original_length and data.
Captures may be gzip-compressed. Configure via file, env (CAPFRAME_*), or flags.
`

var exampleUsage = strings.TrimSpace(`
  capframe convert trace.pcap -o trace.parquet
  capframe convert trace.pcap.gz --format arrow --max-rows 100000
  capframe convert trace.pcap --bpf-file https.bpf   # tcpdump -ddd 'tcp port 443' > https.bpf
  capframe schema trace.pcap
  capframe watch --dir /var/captures --output-dir /var/columnar
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli carries the resolved configuration into subcommands.
type cli struct {
	cfg     cliconfig.Config
	cfgPath string
	logger  *log.ZerologAdapter
}

func main() {
	a := &cli{cfg: cliconfig.DefaultConfig()}

	root := &cobra.Command{
		Use:           "capframe",
		Short:         "Convert pcap captures into columnar Arrow/Parquet files",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "path to config file (default: $HOME/.capframe/config.toml)")
	root.PersistentFlags().StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.cfg.LogFormat, "log-format", a.cfg.LogFormat, "log format (console or json)")

	root.AddCommand(
		a.convertCmd(),
		a.schemaCmd(),
		a.inspectCmd(),
		a.watchCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		if a.logger != nil {
			a.logger.Error("capframe", log.Err(err))
		} else {
			fmt.Fprintln(os.Stderr, "capframe:", err)
		}
		stop()
		os.Exit(1)
	}
}

// loadConfig resolves configuration with precedence flags > env > file > defaults.
func (a *cli) loadConfig(cmd *cobra.Command) error {
	cfgFile := a.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	// Build set of changed flags
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&a.cfg, fc, changed); err != nil {
			return err
		}
	} else if a.cfgPath != "" {
		return fmt.Errorf("config file %s not found", a.cfgPath)
	}

	if err := cliconfig.ApplyEnvConfig(&a.cfg, changed); err != nil {
		return err
	}

	if err := a.cfg.Validate(); err != nil {
		return err
	}

	a.logger = cliconfig.Logger(a.cfg)
	a.logger.Debug("configuration",
		log.String("config_file", cfgFile),
		log.Any("config", a.cfg),
	)
	return nil
}
