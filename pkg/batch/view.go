package batch

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Row is one packet read back out of a batch. Data aliases the record's
// buffers and is only valid while the record is retained.
type Row struct {
	Timestamp      int64
	PacketNumber   uint64
	CapturedLength uint32
	OriginalLength uint32
	Data           []byte
}

// View gives typed access to the columns of a packet batch.
type View struct {
	rec     arrow.Record
	unit    arrow.TimeUnit
	ts      *array.Timestamp
	num     *array.Uint64
	capLen  *array.Uint32
	origLen *array.Uint32
	data    *array.LargeBinary
}

// NewView checks that rec has the packet batch schema and wraps it.
// The View does not retain rec.
func NewView(rec arrow.Record) (*View, error) {
	if err := checkSchema(rec.Schema()); err != nil {
		return nil, err
	}
	ts, ok := rec.Column(idxTimestamp).(*array.Timestamp)
	if !ok {
		return nil, fmt.Errorf("batch: unexpected %s column %T", ColTimestamp, rec.Column(idxTimestamp))
	}
	return &View{
		rec:     rec,
		unit:    rec.Schema().Field(idxTimestamp).Type.(*arrow.TimestampType).Unit,
		ts:      ts,
		num:     rec.Column(idxPacketNumber).(*array.Uint64),
		capLen:  rec.Column(idxCapturedLength).(*array.Uint32),
		origLen: rec.Column(idxOriginalLength).(*array.Uint32),
		data:    rec.Column(idxData).(*array.LargeBinary),
	}, nil
}

// Len returns the number of rows.
func (v *View) Len() int {
	return int(v.rec.NumRows())
}

// Unit returns the unit of the timestamp column.
func (v *View) Unit() arrow.TimeUnit {
	return v.unit
}

// Row returns row i.
func (v *View) Row(i int) Row {
	return Row{
		Timestamp:      int64(v.ts.Value(i)),
		PacketNumber:   v.num.Value(i),
		CapturedLength: v.capLen.Value(i),
		OriginalLength: v.origLen.Value(i),
		Data:           v.data.Value(i),
	}
}

// Data returns the payload of row i.
func (v *View) Data(i int) []byte {
	return v.data.Value(i)
}

// PacketNumber returns the packet number of row i.
func (v *View) PacketNumber(i int) uint64 {
	return v.num.Value(i)
}

// Time returns the timestamp of row i as a UTC time.Time.
func (v *View) Time(i int) time.Time {
	return v.ts.Value(i).ToTime(v.unit)
}
