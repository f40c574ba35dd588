package pcap

import (
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket/layers"
)

// Magic numbers as they appear when the first four bytes are read big-endian.
// The swapped variants identify little-endian files.
const (
	MagicMicroseconds        uint32 = 0xa1b2c3d4
	MagicMicrosecondsSwapped uint32 = 0xd4c3b2a1
	MagicNanoseconds         uint32 = 0xa1b23c4d
	MagicNanosecondsSwapped  uint32 = 0x4d3cb2a1
)

const (
	// HeaderSize is the size of the global file header.
	HeaderSize = 24

	// RecordHeaderSize is the size of the per-packet record header.
	RecordHeaderSize = 16

	// MaxSnapLen is the libpcap maximum snapshot length. It bounds captured
	// lengths when a file declares a snapshot length of zero.
	MaxSnapLen uint32 = 262144
)

// Precision is the unit of the sub-second timestamp field.
type Precision int

const (
	Microsecond Precision = iota
	Nanosecond
)

// String returns a human-readable representation of the precision.
func (p Precision) String() string {
	switch p {
	case Microsecond:
		return "us"
	case Nanosecond:
		return "ns"
	default:
		return "unknown"
	}
}

// perSecond returns the number of ticks in one second.
func (p Precision) perSecond() int64 {
	if p == Nanosecond {
		return 1_000_000_000
	}
	return 1_000_000
}

// CaptureHeader is the parsed global header of a capture file.
// It is immutable once returned by ParseHeader.
type CaptureHeader struct {
	// Magic is the magic number read big-endian from the first four bytes
	Magic uint32

	VersionMajor uint16
	VersionMinor uint16

	// ThisZone and SigFigs are carried through but otherwise ignored
	ThisZone int32
	SigFigs  uint32

	// SnapLen is the maximum number of bytes stored per packet
	SnapLen uint32

	// LinkType is the link-layer header type (LINKTYPE_* value)
	LinkType uint32
}

// LittleEndian reports whether the record fields are stored little-endian.
func (h CaptureHeader) LittleEndian() bool {
	return h.Magic == MagicMicrosecondsSwapped || h.Magic == MagicNanosecondsSwapped
}

// ByteOrder returns the byte order of every multi-byte field after the magic.
func (h CaptureHeader) ByteOrder() binary.ByteOrder {
	if h.LittleEndian() {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Precision returns the timestamp precision selected by the magic number.
func (h CaptureHeader) Precision() Precision {
	if h.Magic == MagicNanoseconds || h.Magic == MagicNanosecondsSwapped {
		return Nanosecond
	}
	return Microsecond
}

// MaxCapturedLength returns the largest captured length a record may declare.
func (h CaptureHeader) MaxCapturedLength() uint32 {
	if h.SnapLen == 0 {
		return MaxSnapLen
	}
	return h.SnapLen
}

// LinkTypeName returns the well-known name of the link type, e.g. "Ethernet".
func (h CaptureHeader) LinkTypeName() string {
	if h.LinkType > 0xff {
		return fmt.Sprintf("LinkType(%d)", h.LinkType)
	}
	return layers.LinkType(h.LinkType).String()
}

// FrameRecord is one packet record. Data has exactly CapturedLength bytes.
type FrameRecord struct {
	TimestampSec   uint32
	TimestampFrac  uint32
	CapturedLength uint32
	OriginalLength uint32
	Data           []byte
}

// Timestamp combines seconds and fraction into ticks of p since the epoch.
func (f FrameRecord) Timestamp(p Precision) int64 {
	return int64(f.TimestampSec)*p.perSecond() + int64(f.TimestampFrac)
}
