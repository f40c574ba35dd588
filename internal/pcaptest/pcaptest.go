// Package pcaptest builds classic pcap byte streams for tests, including
// malformed ones that a well-behaved writer refuses to produce.
package pcaptest

import (
	"bytes"
	"encoding/binary"

	"github.com/bft-labs/capframe/pkg/pcap"
)

// Record describes one packet record to encode.
type Record struct {
	Sec  uint32
	Frac uint32
	Data []byte

	// CapLen overrides the declared captured length when non-zero.
	CapLen uint32

	// OrigLen defaults to the declared captured length when zero.
	OrigLen uint32
}

// Options controls the global header.
type Options struct {
	Order    binary.ByteOrder
	Nanos    bool
	SnapLen  uint32
	LinkType uint32
}

// DefaultOptions returns little-endian, microsecond, snaplen 65535, Ethernet.
func DefaultOptions() Options {
	return Options{
		Order:    binary.LittleEndian,
		SnapLen:  65535,
		LinkType: 1,
	}
}

// Header encodes only the global header.
func Header(o Options) []byte {
	magic := pcap.MagicMicroseconds
	if o.Nanos {
		magic = pcap.MagicNanoseconds
	}
	order := o.Order
	if order == nil {
		order = binary.LittleEndian
	}

	buf := make([]byte, pcap.HeaderSize)
	// The magic is always written in file byte order; read big-endian it
	// becomes the swapped constant for little-endian files.
	order.PutUint32(buf[0:4], magic)
	order.PutUint16(buf[4:6], 2)
	order.PutUint16(buf[6:8], 4)
	order.PutUint32(buf[8:12], 0)
	order.PutUint32(buf[12:16], 0)
	order.PutUint32(buf[16:20], o.SnapLen)
	order.PutUint32(buf[20:24], o.LinkType)
	return buf
}

// Capture encodes a global header followed by recs.
func Capture(o Options, recs ...Record) []byte {
	order := o.Order
	if order == nil {
		order = binary.LittleEndian
	}

	var b bytes.Buffer
	b.Write(Header(o))
	for _, r := range recs {
		capLen := r.CapLen
		if capLen == 0 {
			capLen = uint32(len(r.Data))
		}
		origLen := r.OrigLen
		if origLen == 0 {
			origLen = capLen
		}
		var hdr [pcap.RecordHeaderSize]byte
		order.PutUint32(hdr[0:4], r.Sec)
		order.PutUint32(hdr[4:8], r.Frac)
		order.PutUint32(hdr[8:12], capLen)
		order.PutUint32(hdr[12:16], origLen)
		b.Write(hdr[:])
		b.Write(r.Data)
	}
	return b.Bytes()
}

// Payloads returns n records whose payload lengths follow lens, cycling.
// Payload byte values encode the record index so mixups are visible.
func Payloads(n int, lens ...int) []Record {
	if len(lens) == 0 {
		lens = []int{64}
	}
	recs := make([]Record, n)
	for i := range recs {
		data := make([]byte, lens[i%len(lens)])
		for j := range data {
			data[j] = byte(i + j)
		}
		recs[i] = Record{Sec: uint32(1_700_000_000 + i), Frac: uint32(i), Data: data}
	}
	return recs
}
