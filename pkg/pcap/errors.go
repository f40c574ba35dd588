package pcap

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is. The typed errors below wrap one of these.
var (
	// ErrFormat is returned when the magic number is not a classic pcap magic.
	ErrFormat = errors.New("pcap: unrecognized format")

	// ErrTruncated is returned when a fixed-size structure is cut short.
	ErrTruncated = errors.New("pcap: truncated input")

	// ErrCorruptRecord is returned when a record's lengths cannot be trusted.
	ErrCorruptRecord = errors.New("pcap: corrupt record")
)

// FormatError reports an unrecognized magic number.
type FormatError struct {
	Magic uint32
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("pcap: unrecognized magic number 0x%08x", e.Magic)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

// TruncatedInputError reports that fewer bytes were available than a
// fixed-size structure requires.
type TruncatedInputError struct {
	// What names the structure being read
	What string
	Need int
	Got  int
}

func (e *TruncatedInputError) Error() string {
	return fmt.Sprintf("pcap: truncated %s: need %d bytes, got %d", e.What, e.Need, e.Got)
}

func (e *TruncatedInputError) Unwrap() error { return ErrTruncated }

// CorruptRecordError reports a record whose declared captured length exceeds
// the snapshot length, or whose payload ends before the captured length.
type CorruptRecordError struct {
	// Frame is the zero-based index of the record in the capture
	Frame uint64

	// Offset is the byte offset of the record header in the stream
	Offset int64

	CapturedLength uint32
	SnapLen        uint32

	// Available is the number of payload bytes read before the stream ended.
	// It is only meaningful for short payloads.
	Available int

	Reason string
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("pcap: corrupt record %d at offset %d: %s", e.Frame, e.Offset, e.Reason)
}

func (e *CorruptRecordError) Unwrap() error { return ErrCorruptRecord }
