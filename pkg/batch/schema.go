package batch

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/bft-labs/capframe/pkg/pcap"
)

// Column names of every packet batch, in schema order.
const (
	ColTimestamp      = "timestamp"
	ColPacketNumber   = "packet_number"
	ColCapturedLength = "captured_length"
	ColOriginalLength = "original_length"
	ColData           = "data"
)

const (
	idxTimestamp = iota
	idxPacketNumber
	idxCapturedLength
	idxOriginalLength
	idxData
	numColumns
)

// TimeUnit maps a capture precision to the Arrow timestamp unit.
func TimeUnit(p pcap.Precision) arrow.TimeUnit {
	if p == pcap.Nanosecond {
		return arrow.Nanosecond
	}
	return arrow.Microsecond
}

// PrecisionOf returns the capture precision a packet batch schema was built
// for.
func PrecisionOf(s *arrow.Schema) (pcap.Precision, error) {
	if err := checkSchema(s); err != nil {
		return 0, err
	}
	switch s.Field(idxTimestamp).Type.(*arrow.TimestampType).Unit {
	case arrow.Microsecond:
		return pcap.Microsecond, nil
	case arrow.Nanosecond:
		return pcap.Nanosecond, nil
	default:
		return 0, fmt.Errorf("batch: unsupported timestamp unit %s", s.Field(idxTimestamp).Type)
	}
}

// Schema returns the packet batch schema for captures of precision p.
func Schema(p pcap.Precision) *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: ColTimestamp, Type: &arrow.TimestampType{Unit: TimeUnit(p)}},
		{Name: ColPacketNumber, Type: arrow.PrimitiveTypes.Uint64},
		{Name: ColCapturedLength, Type: arrow.PrimitiveTypes.Uint32},
		{Name: ColOriginalLength, Type: arrow.PrimitiveTypes.Uint32},
		// 64-bit offsets: a full batch of snaplen-sized packets passes 2 GiB.
		{Name: ColData, Type: arrow.BinaryTypes.LargeBinary},
	}, nil)
}

// checkSchema verifies that s has the packet batch layout.
func checkSchema(s *arrow.Schema) error {
	if s.NumFields() != numColumns {
		return fmt.Errorf("batch: expected %d columns, got %d", numColumns, s.NumFields())
	}
	want := []struct {
		name string
		id   arrow.Type
	}{
		{ColTimestamp, arrow.TIMESTAMP},
		{ColPacketNumber, arrow.UINT64},
		{ColCapturedLength, arrow.UINT32},
		{ColOriginalLength, arrow.UINT32},
		{ColData, arrow.LARGE_BINARY},
	}
	for i, w := range want {
		f := s.Field(i)
		if f.Name != w.name || f.Type.ID() != w.id {
			return fmt.Errorf("batch: column %d is %s %s, want %s %s", i, f.Name, f.Type, w.name, w.id)
		}
	}
	return nil
}
