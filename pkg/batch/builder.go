package batch

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/bft-labs/capframe/pkg/pcap"
)

// maxReserveRows caps up-front reservation for very large pull sizes.
const maxReserveRows = 1 << 20

// Builder accumulates packet records column by column.
// A Builder is reused across batches and is not safe for concurrent use.
type Builder struct {
	schema    *arrow.Schema
	precision pcap.Precision

	rb      *array.RecordBuilder
	ts      *array.TimestampBuilder
	num     *array.Uint64Builder
	capLen  *array.Uint32Builder
	origLen *array.Uint32Builder
	data    *array.BinaryBuilder

	rows  int
	bytes int64
}

// NewBuilder creates a Builder for captures of precision p and reserves room
// for hint rows.
func NewBuilder(mem memory.Allocator, p pcap.Precision, hint int) *Builder {
	schema := Schema(p)
	rb := array.NewRecordBuilder(mem, schema)
	b := &Builder{
		schema:    schema,
		precision: p,
		rb:        rb,
		ts:        rb.Field(idxTimestamp).(*array.TimestampBuilder),
		num:       rb.Field(idxPacketNumber).(*array.Uint64Builder),
		capLen:    rb.Field(idxCapturedLength).(*array.Uint32Builder),
		origLen:   rb.Field(idxOriginalLength).(*array.Uint32Builder),
		data:      rb.Field(idxData).(*array.BinaryBuilder),
	}
	b.Reserve(hint)
	return b
}

// Schema returns the schema of the records the Builder produces.
func (b *Builder) Schema() *arrow.Schema {
	return b.schema
}

// Reserve makes room for n more rows in every column.
func (b *Builder) Reserve(n int) {
	if n <= 0 {
		return
	}
	if n > maxReserveRows {
		n = maxReserveRows
	}
	b.rb.Reserve(n)
}

// Append adds one packet as packet number num.
func (b *Builder) Append(num uint64, f pcap.FrameRecord) {
	b.ts.Append(arrow.Timestamp(f.Timestamp(b.precision)))
	b.num.Append(num)
	b.capLen.Append(f.CapturedLength)
	b.origLen.Append(f.OriginalLength)
	b.data.Append(f.Data)
	b.rows++
	b.bytes += int64(len(f.Data))
}

// AppendRow adds a row taken from another batch of the same precision.
func (b *Builder) AppendRow(r Row) {
	b.ts.Append(arrow.Timestamp(r.Timestamp))
	b.num.Append(r.PacketNumber)
	b.capLen.Append(r.CapturedLength)
	b.origLen.Append(r.OriginalLength)
	b.data.Append(r.Data)
	b.rows++
	b.bytes += int64(len(r.Data))
}

// Len returns the number of rows appended since the last Finish or Discard.
func (b *Builder) Len() int {
	return b.rows
}

// Bytes returns the payload bytes appended since the last Finish or Discard.
func (b *Builder) Bytes() int64 {
	return b.bytes
}

// Finish returns the accumulated rows as an immutable record and resets the
// Builder. The caller owns the record and must Release it.
func (b *Builder) Finish() arrow.Record {
	rec := b.rb.NewRecord()
	b.rows = 0
	b.bytes = 0
	return rec
}

// Discard drops the accumulated rows.
func (b *Builder) Discard() {
	if b.rows == 0 {
		return
	}
	b.Finish().Release()
}

// Release frees the column buffers. The Builder must not be used afterwards.
func (b *Builder) Release() {
	b.rb.Release()
}
