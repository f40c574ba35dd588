package source

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/bft-labs/capframe/pkg/batch"
	"github.com/bft-labs/capframe/pkg/log"
	"github.com/bft-labs/capframe/pkg/pcap"
)

// ErrNoMoreData is returned by a pull when the capture is exhausted or the
// row cap has been reached. It is not a failure.
var ErrNoMoreData = io.EOF

// ErrClosed is returned by a pull on a Source closed before it was exhausted.
var ErrClosed = errors.New("source: closed")

const readBufferSize = 64 * 1024

var gzipMagic = []byte{0x1f, 0x8b}

// Predicate is a filter expression offered to the Source for pushdown.
type Predicate interface{}

type sessionState int

const (
	stateProducing sessionState = iota
	stateExhausted
	stateFailed
	stateClosed
)

// Stats describes the progress of a Source.
type Stats struct {
	// Frames is the number of packet records read from the capture
	Frames uint64

	// Rows is the number of rows emitted across all batches
	Rows uint64

	// Batches is the number of non-empty batches emitted
	Batches uint64

	// Offset is the number of capture bytes consumed, after decompression
	Offset int64
}

// Source is a streaming session over one pcap capture.
type Source struct {
	opts      options
	name      string
	header    pcap.CaptureHeader
	schema    *arrow.Schema
	reader    *pcap.FrameReader
	builder   *batch.Builder
	closers   []io.Closer
	closeErr  error
	state     sessionState
	err       error
	next      uint64
	emitted   uint64
	batches   uint64
	predicate Predicate
}

// Open opens the capture file at path. Gzip-compressed captures are
// decompressed transparently. The file is released by Close, or as soon as
// the Source is exhausted or fails.
func Open(path string, opts ...Option) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	s, err := newSource(path, f, []io.Closer{f}, opts)
	if err != nil {
		return nil, fmt.Errorf("open capture %s: %w", path, err)
	}
	return s, nil
}

// New starts a session over r. If r implements io.Closer the Source takes
// ownership of it and closes it with the session.
func New(r io.Reader, opts ...Option) (*Source, error) {
	var closers []io.Closer
	if c, ok := r.(io.Closer); ok {
		closers = append(closers, c)
	}
	return newSource("", r, closers, opts)
}

func newSource(name string, r io.Reader, closers []io.Closer, opts []Option) (*Source, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Source{opts: o, name: name, closers: closers}

	br := bufio.NewReaderSize(r, readBufferSize)
	// Peek errors surface again from ParseHeader as truncation.
	if magic, _ := br.Peek(len(gzipMagic)); bytes.Equal(magic, gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			s.release()
			return nil, fmt.Errorf("gzip: %w", err)
		}
		// Closed before the file underneath it.
		s.closers = append([]io.Closer{zr}, s.closers...)
		br = bufio.NewReaderSize(zr, readBufferSize)
	}

	header, err := pcap.ParseHeader(br)
	if err != nil {
		s.release()
		return nil, err
	}

	s.header = header
	s.schema = batch.Schema(header.Precision())
	s.reader = pcap.NewFrameReader(br, header)
	s.builder = batch.NewBuilder(o.mem, header.Precision(), o.batchSize)

	o.logger.Debug("capture opened",
		log.String("source", s.name),
		log.String("precision", header.Precision().String()),
		log.Int("snaplen", int(header.SnapLen)),
		log.String("link_type", header.LinkTypeName()),
		log.Bool("little_endian", header.LittleEndian()),
		log.Int("batch_size", o.batchSize),
		log.Bool("capped", o.capped),
		log.Uint64("max_rows", o.maxRows),
	)
	return s, nil
}

// Header returns the parsed global header.
func (s *Source) Header() pcap.CaptureHeader {
	return s.header
}

// Schema returns the schema of every batch this Source produces. It is known
// as soon as the Source exists and never changes.
func (s *Source) Schema() *arrow.Schema {
	return s.schema
}

// BatchSize returns the configured batch-size hint.
func (s *Source) BatchSize() int {
	return s.opts.batchSize
}

// SetPredicate registers a pushdown predicate. The predicate is accepted but
// not applied: every row is still materialized and returned, and filtering is
// left to the consumer.
func (s *Source) SetPredicate(p Predicate) error {
	s.predicate = p
	s.opts.logger.Debug("predicate accepted, not pushed down",
		log.String("source", s.name),
		log.Any("predicate", p),
	)
	return nil
}

// Predicate returns the predicate registered with SetPredicate, if any.
func (s *Source) Predicate() Predicate {
	return s.predicate
}

// Next pulls up to the configured batch size of rows.
func (s *Source) Next() (arrow.Record, error) {
	return s.NextN(s.opts.batchSize)
}

// NextN pulls up to n rows; n may exceed the batch-size hint and values below
// 1 use it. It returns a non-empty record owned by the caller, ErrNoMoreData,
// or a fatal error that every later pull repeats.
func (s *Source) NextN(n int) (arrow.Record, error) {
	switch s.state {
	case stateExhausted:
		return nil, ErrNoMoreData
	case stateFailed:
		return nil, s.err
	case stateClosed:
		return nil, ErrClosed
	}

	if n <= 0 {
		n = s.opts.batchSize
	}
	if s.opts.capped {
		remaining := s.opts.maxRows - s.emitted
		if remaining == 0 {
			s.exhaust("row cap reached")
			return nil, ErrNoMoreData
		}
		if uint64(n) > remaining {
			n = int(remaining)
		}
	}

	s.builder.Reserve(n)
	for s.builder.Len() < n {
		frame, err := s.reader.Next()
		if err == io.EOF {
			s.exhaust("end of capture")
			break
		}
		if err != nil {
			// Rows gathered by this pull are dropped with the session.
			s.builder.Discard()
			s.fail(err)
			return nil, err
		}
		s.builder.Append(s.next, frame)
		s.next++
	}

	rows := s.builder.Len()
	if rows == 0 {
		return nil, ErrNoMoreData
	}

	first := s.next - uint64(rows)
	payload := s.builder.Bytes()
	rec := s.builder.Finish()
	s.emitted += uint64(rows)
	s.batches++

	s.opts.logger.Debug("batch built",
		log.String("source", s.name),
		log.Int("rows", rows),
		log.Uint64("first_packet", first),
		log.Int64("payload_bytes", payload),
		log.Uint64("emitted", s.emitted),
	)

	if s.opts.capped && s.emitted >= s.opts.maxRows {
		s.exhaust("row cap reached")
	}
	return rec, nil
}

// Stats returns counters for the session so far.
func (s *Source) Stats() Stats {
	st := Stats{Rows: s.emitted, Batches: s.batches}
	if s.reader != nil {
		st.Frames = s.reader.Frames()
		st.Offset = s.reader.Offset()
	}
	return st
}

// Err returns the fatal error that ended the session, if any.
func (s *Source) Err() error {
	if s.state == stateFailed {
		return s.err
	}
	return nil
}

// Close ends the session and releases the capture. It is safe to call more
// than once; only the first call can return an error.
func (s *Source) Close() error {
	if s.state == stateProducing {
		s.state = stateClosed
	}
	if s.builder != nil {
		s.builder.Release()
		s.builder = nil
	}
	s.release()
	err := s.closeErr
	s.closeErr = nil
	return err
}

func (s *Source) exhaust(reason string) {
	if s.state != stateProducing {
		return
	}
	s.state = stateExhausted
	s.opts.logger.Debug("capture exhausted",
		log.String("source", s.name),
		log.String("reason", reason),
		log.Uint64("rows", s.emitted),
	)
	s.release()
}

func (s *Source) fail(err error) {
	s.state = stateFailed
	s.err = err
	s.opts.logger.Error("capture read failed",
		log.String("source", s.name),
		log.Uint64("rows", s.emitted),
		log.Err(err),
	)
	s.release()
}

// release closes the underlying readers exactly once.
func (s *Source) release() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	}
	s.closers = nil
}
