package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/bft-labs/capframe/pkg/filter"
	"github.com/bft-labs/capframe/pkg/log"
	"github.com/bft-labs/capframe/pkg/pcap"
	"github.com/bft-labs/capframe/pkg/sink"
	"github.com/bft-labs/capframe/pkg/source"
)

// ConverterConfig contains configuration for capture conversion.
type ConverterConfig struct {
	Format    sink.Format
	Sink      sink.Options
	BatchSize int

	// MaxRows caps the packets read from each capture. Nil reads them all.
	MaxRows *uint64

	// Filter drops rows after they are read. Optional.
	Filter *filter.Filter

	Allocator memory.Allocator
}

// Result summarizes one conversion.
type Result struct {
	Input  string
	Output string
	Header pcap.CaptureHeader

	// Packets is the number of rows read from the capture
	Packets uint64

	// Rows is the number of rows written after filtering
	Rows int64

	Batches  uint64
	Bytes    int64
	Duration time.Duration
}

// Converter turns capture files into columnar files.
type Converter struct {
	config ConverterConfig
	logger log.Logger
}

// NewConverter creates a Converter. A nil logger discards output.
func NewConverter(config ConverterConfig, logger log.Logger) *Converter {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if config.Allocator == nil {
		config.Allocator = memory.DefaultAllocator
	}
	if config.Sink.Allocator == nil {
		config.Sink.Allocator = config.Allocator
	}
	if config.Filter != nil {
		config.Filter.WithAllocator(config.Allocator)
	}
	return &Converter{config: config, logger: logger}
}

// Convert reads the capture at in and writes it to out. The context is
// checked between pulls; a pull in progress runs to completion. On any error
// no output file is left behind.
func (c *Converter) Convert(ctx context.Context, in, out string) (Result, error) {
	start := time.Now()
	res := Result{Input: in, Output: out}

	opts := []source.Option{
		source.WithBatchSize(c.config.BatchSize),
		source.WithAllocator(c.config.Allocator),
		source.WithLogger(c.logger),
	}
	if c.config.MaxRows != nil {
		opts = append(opts, source.WithMaxRows(*c.config.MaxRows))
	}

	src, err := source.Open(in, opts...)
	if err != nil {
		return res, err
	}
	defer src.Close()
	res.Header = src.Header()

	c.logger.Debug("converting capture",
		log.String("input", in),
		log.String("output", out),
		log.Int("batch_size", src.BatchSize()),
		log.String("link_type", res.Header.LinkTypeName()),
	)

	dst, err := sink.Create(out, c.config.Format, src.Schema(), c.config.Sink)
	if err != nil {
		return res, err
	}
	defer dst.Abort()

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		rec, err := src.Next()
		if errors.Is(err, source.ErrNoMoreData) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read %s: %w", in, err)
		}

		res.Packets += uint64(rec.NumRows())
		rec, err = c.filter(rec)
		if err != nil {
			return res, err
		}
		if rec.NumRows() > 0 {
			err = dst.Write(rec)
		}
		rows := rec.NumRows()
		rec.Release()
		if err != nil {
			return res, err
		}
		res.Batches++

		c.logger.Debug("batch written",
			log.String("input", in),
			log.Int64("rows", rows),
			log.Uint64("packets_read", res.Packets),
		)
	}

	if err := dst.Close(); err != nil {
		return res, err
	}

	res.Rows = dst.Rows()
	res.Bytes = src.Stats().Offset
	res.Duration = time.Since(start)

	c.logger.Info("capture converted",
		log.String("input", in),
		log.String("output", out),
		log.String("format", string(c.config.Format)),
		log.Uint64("packets", res.Packets),
		log.Int64("rows", res.Rows),
		log.Uint64("batches", res.Batches),
		log.Int64("bytes", res.Bytes),
		log.Duration("elapsed", res.Duration),
	)
	return res, nil
}

// filter applies the configured filter, taking ownership of rec.
func (c *Converter) filter(rec arrow.Record) (arrow.Record, error) {
	if c.config.Filter == nil {
		return rec, nil
	}
	defer rec.Release()
	out, err := c.config.Filter.Apply(rec)
	if err != nil {
		return nil, err
	}
	return out, nil
}
