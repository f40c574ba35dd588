package pcap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// FrameReader reads packet records that follow a parsed global header.
// It is not safe for concurrent use.
type FrameReader struct {
	r         io.Reader
	header    CaptureHeader
	byteOrder binary.ByteOrder
	maxCap    uint32
	offset    int64
	frames    uint64
}

// NewFrameReader creates a FrameReader positioned just after the global header.
// r should be buffered; every record costs two reads.
func NewFrameReader(r io.Reader, header CaptureHeader) *FrameReader {
	return &FrameReader{
		r:         r,
		header:    header,
		byteOrder: header.ByteOrder(),
		maxCap:    header.MaxCapturedLength(),
		offset:    HeaderSize,
	}
}

// Header returns the global header the reader was created with.
func (fr *FrameReader) Header() CaptureHeader {
	return fr.header
}

// Next reads one record.
// Returns io.EOF when fewer than RecordHeaderSize bytes remain, including a
// partial trailing header. Returns *CorruptRecordError when the captured
// length exceeds the snapshot length or the payload is cut short.
func (fr *FrameReader) Next() (FrameRecord, error) {
	var hdr [RecordHeaderSize]byte
	n, err := io.ReadFull(fr.r, hdr[:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			fr.offset += int64(n)
			return FrameRecord{}, io.EOF
		}
		return FrameRecord{}, fmt.Errorf("pcap: read record header at offset %d: %w", fr.offset, err)
	}

	rec := FrameRecord{
		TimestampSec:   fr.byteOrder.Uint32(hdr[0:4]),
		TimestampFrac:  fr.byteOrder.Uint32(hdr[4:8]),
		CapturedLength: fr.byteOrder.Uint32(hdr[8:12]),
		OriginalLength: fr.byteOrder.Uint32(hdr[12:16]),
	}

	// Checked before allocating so a garbage length cannot blow up memory.
	if rec.CapturedLength > fr.maxCap {
		return FrameRecord{}, &CorruptRecordError{
			Frame:          fr.frames,
			Offset:         fr.offset,
			CapturedLength: rec.CapturedLength,
			SnapLen:        fr.header.SnapLen,
			Reason:         fmt.Sprintf("captured length %d exceeds snapshot length %d", rec.CapturedLength, fr.maxCap),
		}
	}

	rec.Data = make([]byte, rec.CapturedLength)
	n, err = io.ReadFull(fr.r, rec.Data)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return FrameRecord{}, &CorruptRecordError{
				Frame:          fr.frames,
				Offset:         fr.offset,
				CapturedLength: rec.CapturedLength,
				SnapLen:        fr.header.SnapLen,
				Available:      n,
				Reason:         fmt.Sprintf("payload has %d of %d bytes", n, rec.CapturedLength),
			}
		}
		return FrameRecord{}, fmt.Errorf("pcap: read payload of record %d: %w", fr.frames, err)
	}

	fr.offset += RecordHeaderSize + int64(rec.CapturedLength)
	fr.frames++
	return rec, nil
}

// Offset returns the number of bytes consumed so far, global header included.
func (fr *FrameReader) Offset() int64 {
	return fr.offset
}

// Frames returns the number of complete records read.
func (fr *FrameReader) Frames() uint64 {
	return fr.frames
}
