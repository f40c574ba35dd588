package pcap

import (
	"encoding/binary"
	"errors"
	"io"
)

// ParseHeader reads exactly HeaderSize bytes from r and validates the magic
// number. It returns *TruncatedInputError when r ends early and *FormatError
// when the magic is not one of the four classic pcap variants.
func ParseHeader(r io.Reader) (CaptureHeader, error) {
	var buf [HeaderSize]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return CaptureHeader{}, &TruncatedInputError{What: "global header", Need: HeaderSize, Got: n}
		}
		return CaptureHeader{}, err
	}
	return decodeHeader(buf)
}

func decodeHeader(buf [HeaderSize]byte) (CaptureHeader, error) {
	magic := binary.BigEndian.Uint32(buf[0:4])
	switch magic {
	case MagicMicroseconds, MagicNanoseconds,
		MagicMicrosecondsSwapped, MagicNanosecondsSwapped:
	default:
		return CaptureHeader{}, &FormatError{Magic: magic}
	}

	h := CaptureHeader{Magic: magic}
	order := h.ByteOrder()
	h.VersionMajor = order.Uint16(buf[4:6])
	h.VersionMinor = order.Uint16(buf[6:8])
	h.ThisZone = int32(order.Uint32(buf[8:12]))
	h.SigFigs = order.Uint32(buf[12:16])
	h.SnapLen = order.Uint32(buf[16:20])
	h.LinkType = order.Uint32(buf[20:24])
	return h, nil
}
