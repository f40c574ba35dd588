// Package batch assembles packet records into Apache Arrow record batches.
//
// A [Builder] is an arena of column builders pre-sized to a batch-size hint.
// Records are appended in lockstep across all five columns and finalized into
// an immutable arrow.Record:
//
//	b := batch.NewBuilder(memory.DefaultAllocator, pcap.Microsecond, 10_000)
//	defer b.Release()
//
//	b.Append(0, frame)
//	rec := b.Finish()
//	defer rec.Release()
//
// # Schema
//
// Every batch has the columns timestamp, packet_number, captured_length,
// original_length and data. The timestamp unit follows the capture's declared
// precision; see [Schema].
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package batch
