package source

import (
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/bft-labs/capframe/pkg/log"
)

// DefaultBatchSize is the number of rows Next reads when no hint is given.
const DefaultBatchSize = 10_000

// Option configures a Source.
type Option func(*options)

type options struct {
	batchSize int
	maxRows   uint64
	capped    bool
	mem       memory.Allocator
	logger    log.Logger
}

func defaultOptions() options {
	return options{
		batchSize: DefaultBatchSize,
		mem:       memory.DefaultAllocator,
		logger:    log.NewNoopLogger(),
	}
}

// WithBatchSize sets the number of rows Next reads per pull.
// Values below 1 keep the default.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithMaxRows caps the total number of rows the Source emits across all
// pulls. A cap of zero emits nothing. Without this option every packet is
// read.
func WithMaxRows(n uint64) Option {
	return func(o *options) {
		o.maxRows = n
		o.capped = true
	}
}

// WithAllocator sets the Arrow allocator used for batch buffers.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) {
		if mem != nil {
			o.mem = mem
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
