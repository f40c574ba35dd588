package sink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// partialSuffix marks an output that is still being written.
const partialSuffix = ".partial"

// Sink consumes packet batches.
type Sink interface {
	// Write appends rec. The sink does not retain rec after returning.
	Write(rec arrow.Record) error

	// Close flushes and commits the output.
	Close() error

	// Abort discards the output. It is a no-op after a successful Close.
	Abort() error

	// Rows returns the number of rows written so far.
	Rows() int64
}

// Options tunes the writers.
type Options struct {
	// Compression codec. Parquet accepts snappy, zstd, gzip and none
	// (default snappy). Arrow formats accept zstd, lz4 and none (default none).
	Compression string

	// RowGroupRows caps Parquet row group length. Zero keeps the library
	// default.
	RowGroupRows int64

	// Allocator for writer buffers. Defaults to memory.DefaultAllocator.
	Allocator memory.Allocator
}

func (o Options) allocator() memory.Allocator {
	if o.Allocator == nil {
		return memory.DefaultAllocator
	}
	return o.Allocator
}

// recordWriter is what the arrow-go writers have in common.
type recordWriter interface {
	Write(rec arrow.Record) error
	Close() error
}

type fileSink struct {
	format Format
	path   string
	tmp    string
	f      *os.File
	buf    *bufio.Writer
	w      recordWriter
	rows   int64
	done   bool
}

// Create opens a sink that writes format to path. The output appears at path
// only after Close succeeds.
func Create(path string, format Format, schema *arrow.Schema, opts Options) (Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	tmp := path + partialSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}

	s := &fileSink{format: format, path: path, tmp: tmp, f: f, buf: bufio.NewWriterSize(f, 1<<20)}
	s.w, err = newRecordWriter(s.buf, format, schema, opts)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return nil, err
	}
	return s, nil
}

// New returns a sink writing format to w. Closing the sink does not close w.
func New(w io.Writer, format Format, schema *arrow.Schema, opts Options) (Sink, error) {
	rw, err := newRecordWriter(struct{ io.Writer }{w}, format, schema, opts)
	if err != nil {
		return nil, err
	}
	return &streamSink{w: rw}, nil
}

func newRecordWriter(w io.Writer, format Format, schema *arrow.Schema, opts Options) (recordWriter, error) {
	switch format {
	case FormatArrow, FormatArrowStream:
		ipcOpts := []ipc.Option{ipc.WithSchema(schema), ipc.WithAllocator(opts.allocator())}
		switch strings.ToLower(opts.Compression) {
		case "", "none":
		case "zstd":
			ipcOpts = append(ipcOpts, ipc.WithZstd())
		case "lz4":
			ipcOpts = append(ipcOpts, ipc.WithLZ4())
		default:
			return nil, fmt.Errorf("compression %q is not supported for %s output", opts.Compression, format)
		}
		if format == FormatArrowStream {
			return ipc.NewWriter(w, ipcOpts...), nil
		}
		fw, err := ipc.NewFileWriter(w, ipcOpts...)
		if err != nil {
			return nil, fmt.Errorf("arrow file writer: %w", err)
		}
		return fw, nil

	case FormatParquet:
		codec, err := parquetCodec(opts.Compression)
		if err != nil {
			return nil, err
		}
		props := []parquet.WriterProperty{
			parquet.WithCompression(codec),
			parquet.WithAllocator(opts.allocator()),
			parquet.WithCreatedBy("capframe"),
		}
		if opts.RowGroupRows > 0 {
			props = append(props, parquet.WithMaxRowGroupLength(opts.RowGroupRows))
		}
		pw, err := pqarrow.NewFileWriter(schema, w,
			parquet.NewWriterProperties(props...),
			pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema(), pqarrow.WithAllocator(opts.allocator())),
		)
		if err != nil {
			return nil, fmt.Errorf("parquet writer: %w", err)
		}
		return pw, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

func parquetCodec(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	}
	return compress.Codecs.Uncompressed, fmt.Errorf("compression %q is not supported for parquet output", name)
}

func (s *fileSink) Write(rec arrow.Record) error {
	if s.done {
		return errors.New("sink: write after close")
	}
	if err := s.w.Write(rec); err != nil {
		return fmt.Errorf("write %s batch: %w", s.format, err)
	}
	s.rows += rec.NumRows()
	return nil
}

func (s *fileSink) Close() error {
	if s.done {
		return nil
	}
	s.done = true

	err := s.w.Close()
	if err == nil {
		err = s.buf.Flush()
	}
	if err == nil {
		err = s.f.Sync()
	}
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(s.tmp)
		return fmt.Errorf("finish %s: %w", s.path, err)
	}
	return os.Rename(s.tmp, s.path)
}

func (s *fileSink) Abort() error {
	if s.done {
		return nil
	}
	s.done = true
	_ = s.w.Close()
	_ = s.f.Close()
	return os.Remove(s.tmp)
}

func (s *fileSink) Rows() int64 { return s.rows }

type streamSink struct {
	w    recordWriter
	rows int64
	done bool
}

func (s *streamSink) Write(rec arrow.Record) error {
	if s.done {
		return errors.New("sink: write after close")
	}
	if err := s.w.Write(rec); err != nil {
		return err
	}
	s.rows += rec.NumRows()
	return nil
}

func (s *streamSink) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.w.Close()
}

func (s *streamSink) Abort() error { return s.Close() }

func (s *streamSink) Rows() int64 { return s.rows }
