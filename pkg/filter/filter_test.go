package filter_test

import (
	"bytes"
	"net"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/bpf"

	"github.com/bft-labs/capframe/internal/pcaptest"
	"github.com/bft-labs/capframe/pkg/batch"
	"github.com/bft-labs/capframe/pkg/filter"
	"github.com/bft-labs/capframe/pkg/source"
)

// tcpdump -ddd -y EN10MB ip
const ipv4Only = `4
40 0 0 12
21 0 1 2048
6 0 0 262144
6 0 0 0
`

func ethernet(t *testing.T, ethType layers.EthernetType, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		EthernetType: ethType,
	}
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, eth, gopacket.Payload(payload)))
	return buf.Bytes()
}

func TestParseDecimal(t *testing.T) {
	prog, err := filter.ParseDecimal(strings.NewReader(ipv4Only))
	require.NoError(t, err)
	require.Len(t, prog, 4)
	assert.Equal(t, bpf.RawInstruction{Op: 40, Jt: 0, Jf: 0, K: 12}, prog[0])
	assert.Equal(t, bpf.RawInstruction{Op: 21, Jt: 0, Jf: 1, K: 2048}, prog[1])
	assert.Equal(t, bpf.RawInstruction{Op: 6, K: 0}, prog[3])
}

func TestParseDecimal_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"count mismatch", "3\n6 0 0 0\n"},
		{"bad count", "zero\n6 0 0 0\n"},
		{"short line", "1\n6 0 0\n"},
		{"jump overflow", "1\n6 0 300 0\n"},
		{"not a number", "1\n6 x 0 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := filter.ParseDecimal(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestNew_RejectsInvalidProgram(t *testing.T) {
	// Falls off the end without a return.
	_, err := filter.NewFromInstructions([]bpf.Instruction{bpf.LoadAbsolute{Off: 0, Size: 1}})
	assert.Error(t, err)
}

func TestFilter_Apply(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	raw, err := filter.ParseDecimal(strings.NewReader(ipv4Only))
	require.NoError(t, err)
	flt, err := filter.New(raw)
	require.NoError(t, err)
	flt.WithAllocator(mem)

	frames := []pcaptest.Record{
		{Sec: 1, Data: ethernet(t, layers.EthernetTypeIPv4, []byte{0x45})},
		{Sec: 2, Data: ethernet(t, layers.EthernetTypeARP, []byte{0x00, 0x01})},
		{Sec: 3, Data: ethernet(t, layers.EthernetTypeIPv4, []byte{0x45, 0x00})},
		{Sec: 4, Data: []byte{0xff}},
	}
	src, err := source.New(bytes.NewReader(pcaptest.Capture(pcaptest.DefaultOptions(), frames...)),
		source.WithAllocator(mem))
	require.NoError(t, err)
	defer src.Close()

	rec, err := src.Next()
	require.NoError(t, err)
	defer rec.Release()

	out, err := flt.Apply(rec)
	require.NoError(t, err)
	defer out.Release()

	assert.True(t, out.Schema().Equal(rec.Schema()))
	v, err := batch.NewView(out)
	require.NoError(t, err)
	require.Equal(t, 2, v.Len())
	assert.Equal(t, uint64(0), v.PacketNumber(0))
	assert.Equal(t, uint64(2), v.PacketNumber(1))
	assert.Equal(t, frames[2].Data, v.Data(1))
	assert.Equal(t, int64(3_000_000), v.Row(1).Timestamp)

	assert.Equal(t, uint64(4), flt.Seen())
	assert.Equal(t, uint64(2), flt.Kept())
	assert.Equal(t, 4, flt.Len())
}

func TestFilter_NoMatches(t *testing.T) {
	flt, err := filter.NewFromInstructions([]bpf.Instruction{bpf.RetConstant{Val: 0}})
	require.NoError(t, err)

	src, err := source.New(bytes.NewReader(pcaptest.Capture(pcaptest.DefaultOptions(), pcaptest.Payloads(3, 20)...)))
	require.NoError(t, err)
	defer src.Close()

	rec, err := src.Next()
	require.NoError(t, err)
	defer rec.Release()

	out, err := flt.Apply(rec)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, int64(0), out.NumRows())
}
