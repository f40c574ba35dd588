package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/capframe/internal/app"
	"github.com/bft-labs/capframe/pkg/filter"
	"github.com/bft-labs/capframe/pkg/log"
	"github.com/bft-labs/capframe/pkg/sink"
	"github.com/bft-labs/capframe/pkg/source"
	"github.com/bft-labs/capframe/pkg/state"
)

func (a *cli) convertCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "convert <capture>",
		Short: "Convert one capture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := args[0]
			format := a.cfg.SinkFormat()
			if output != "" && !cmd.Flags().Changed("format") {
				if f, ok := sink.FormatFromPath(output); ok {
					format = f
				}
			}
			if output == "" {
				output = sink.OutputPath(a.cfg.OutputDir, in, format)
			}

			conv, err := a.converter(format)
			if err != nil {
				return err
			}
			res, err := conv.Convert(cmd.Context(), in, output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows (%d packets read) -> %s\n", in, res.Rows, res.Packets, res.Output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: input name with the format's extension)")
	a.conversionFlags(cmd)
	return cmd
}

func (a *cli) schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <capture>",
		Short: "Print the batch schema of a capture without reading packets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := source.Open(args[0], source.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer src.Close()

			fmt.Fprintln(cmd.OutOrStdout(), src.Schema())
			return nil
		},
	}
}

func (a *cli) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <capture>",
		Short: "Print header fields and packet statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := app.Inspect(args[0],
				source.WithBatchSize(a.cfg.BatchSize),
				source.WithLogger(a.logger),
			)
			if err != nil && in.Header.Magic == 0 {
				return err
			}
			h := in.Header
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "version\t%d.%d\n", h.VersionMajor, h.VersionMinor)
			fmt.Fprintf(tw, "byte order\t%s\n", h.ByteOrder())
			fmt.Fprintf(tw, "precision\t%s\n", h.Precision())
			fmt.Fprintf(tw, "snaplen\t%d\n", h.SnapLen)
			fmt.Fprintf(tw, "link type\t%s (%d)\n", h.LinkTypeName(), h.LinkType)
			fmt.Fprintf(tw, "packets\t%d\n", in.Packets)
			fmt.Fprintf(tw, "captured bytes\t%d\n", in.Captured)
			fmt.Fprintf(tw, "original bytes\t%d\n", in.Original)
			fmt.Fprintf(tw, "truncated packets\t%d\n", in.Truncated)
			fmt.Fprintf(tw, "largest packet\t%d\n", in.MaxLen)
			if in.Packets > 0 {
				fmt.Fprintf(tw, "first\t%s\n", in.First.Format(time.RFC3339Nano))
				fmt.Fprintf(tw, "last\t%s\n", in.Last.Format(time.RFC3339Nano))
				fmt.Fprintf(tw, "duration\t%s\n", in.Last.Sub(in.First))
			}
			if ferr := tw.Flush(); err == nil {
				err = ferr
			}
			return err
		},
	}
}

func (a *cli) watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Convert captures as they appear in a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.ValidateWatch(); err != nil {
				return err
			}
			conv, err := a.converter(a.cfg.SinkFormat())
			if err != nil {
				return err
			}
			w := app.NewWatcher(app.WatcherConfig{
				Dir:       a.cfg.WatchDir,
				OutputDir: a.cfg.OutputDir,
				Format:    a.cfg.SinkFormat(),
				Debounce:  a.cfg.Debounce,
				Once:      a.cfg.Once,
			}, conv, state.NewFileRepository(a.cfg.StateDir), a.logger)

			err = w.Run(cmd.Context())
			if err != nil && cmd.Context().Err() != nil {
				a.logger.Info("received signal, stopping")
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&a.cfg.WatchDir, "dir", a.cfg.WatchDir, "directory to watch for *.pcap and *.pcap.gz files")
	cmd.Flags().StringVar(&a.cfg.StateDir, "state-dir", a.cfg.StateDir, "directory for capframe-state.json (defaults to output-dir)")
	cmd.Flags().DurationVar(&a.cfg.Debounce, "debounce", a.cfg.Debounce, "quiet period before a changed file is converted")
	cmd.Flags().BoolVar(&a.cfg.Once, "once", a.cfg.Once, "convert the files already present and exit")
	a.conversionFlags(cmd)
	return cmd
}

// conversionFlags registers the flags shared by convert and watch.
func (a *cli) conversionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.cfg.Format, "format", a.cfg.Format, "output format (arrow, arrows, parquet)")
	cmd.Flags().StringVar(&a.cfg.Compression, "compression", a.cfg.Compression, "codec: parquet snappy|zstd|gzip|none, arrow zstd|lz4|none")
	cmd.Flags().IntVar(&a.cfg.BatchSize, "batch-size", a.cfg.BatchSize, "rows per batch")
	cmd.Flags().IntVar(&a.cfg.MaxRows, "max-rows", a.cfg.MaxRows, "stop after this many packets (-1 = all)")
	cmd.Flags().IntVar(&a.cfg.RowGroupRows, "row-group-rows", a.cfg.RowGroupRows, "maximum rows per parquet row group (0 = library default)")
	cmd.Flags().StringVar(&a.cfg.BPFFile, "bpf-file", a.cfg.BPFFile, "keep only packets matching a program from tcpdump -ddd")
	cmd.Flags().StringVar(&a.cfg.OutputDir, "output-dir", a.cfg.OutputDir, "directory for output files")
}

func (a *cli) converter(format sink.Format) (*app.Converter, error) {
	flt, err := loadFilter(a.cfg.BPFFile)
	if err != nil {
		return nil, err
	}
	if flt != nil {
		a.logger.Info("bpf filter loaded", log.String("file", a.cfg.BPFFile), log.Int("instructions", flt.Len()))
	}
	return app.NewConverter(app.ConverterConfig{
		Format: format,
		Sink: sink.Options{
			Compression:  a.cfg.Compression,
			RowGroupRows: int64(a.cfg.RowGroupRows),
		},
		BatchSize: a.cfg.BatchSize,
		MaxRows:   a.cfg.RowCap(),
		Filter:    flt,
	}, a.logger), nil
}

func loadFilter(path string) (*filter.Filter, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bpf program: %w", err)
	}
	defer f.Close()

	raw, err := filter.ParseDecimal(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return filter.New(raw)
}
