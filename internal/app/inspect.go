package app

import (
	"errors"
	"time"

	"github.com/bft-labs/capframe/pkg/batch"
	"github.com/bft-labs/capframe/pkg/pcap"
	"github.com/bft-labs/capframe/pkg/source"
)

// Inspection describes a capture without converting it.
type Inspection struct {
	Header   pcap.CaptureHeader
	Packets  uint64
	Captured int64
	Original int64
	MaxLen   uint32

	// Truncated counts packets captured shorter than they were on the wire
	Truncated uint64

	First time.Time
	Last  time.Time
}

// Inspect reads every packet of the capture at path and tallies it. A
// corrupt record ends the scan with an error; the tallies up to the last
// complete batch are still returned.
func Inspect(path string, opts ...source.Option) (Inspection, error) {
	src, err := source.Open(path, opts...)
	if err != nil {
		return Inspection{}, err
	}
	defer src.Close()

	in := Inspection{Header: src.Header()}
	for {
		rec, err := src.Next()
		if errors.Is(err, source.ErrNoMoreData) {
			return in, nil
		}
		if err != nil {
			return in, err
		}
		v, err := batch.NewView(rec)
		if err != nil {
			rec.Release()
			return in, err
		}
		for i := 0; i < v.Len(); i++ {
			r := v.Row(i)
			ts := v.Time(i)
			if in.Packets == 0 || ts.Before(in.First) {
				in.First = ts
			}
			if ts.After(in.Last) {
				in.Last = ts
			}
			in.Packets++
			in.Captured += int64(r.CapturedLength)
			in.Original += int64(r.OriginalLength)
			if r.CapturedLength > in.MaxLen {
				in.MaxLen = r.CapturedLength
			}
			if r.CapturedLength < r.OriginalLength {
				in.Truncated++
			}
		}
		rec.Release()
	}
}
