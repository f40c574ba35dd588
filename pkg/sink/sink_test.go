package sink_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/capframe/internal/pcaptest"
	"github.com/bft-labs/capframe/pkg/batch"
	"github.com/bft-labs/capframe/pkg/sink"
	"github.com/bft-labs/capframe/pkg/source"
)

// batches reads a synthetic capture of n packets in batches of size.
func batches(t *testing.T, n, size int) (*arrow.Schema, []arrow.Record) {
	t.Helper()
	raw := pcaptest.Capture(pcaptest.DefaultOptions(), pcaptest.Payloads(n, 0, 14, 60, 1500)...)
	src, err := source.New(bytes.NewReader(raw), source.WithBatchSize(size))
	require.NoError(t, err)
	defer src.Close()

	var recs []arrow.Record
	for {
		rec, err := src.Next()
		if err == source.ErrNoMoreData {
			break
		}
		require.NoError(t, err)
		recs = append(recs, rec)
	}
	t.Cleanup(func() {
		for _, r := range recs {
			r.Release()
		}
	})
	return src.Schema(), recs
}

func writeAll(t *testing.T, s sink.Sink, recs []arrow.Record) {
	t.Helper()
	for _, r := range recs {
		require.NoError(t, s.Write(r))
	}
	require.NoError(t, s.Close())
}

func assertSameRows(t *testing.T, want []arrow.Record, got []arrow.Record) {
	t.Helper()
	var wantRows, gotRows []batch.Row
	collect := func(recs []arrow.Record, into *[]batch.Row) {
		for _, r := range recs {
			v, err := batch.NewView(r)
			require.NoError(t, err)
			for i := 0; i < v.Len(); i++ {
				row := v.Row(i)
				row.Data = append([]byte(nil), row.Data...)
				*into = append(*into, row)
			}
		}
	}
	collect(want, &wantRows)
	collect(got, &gotRows)
	assert.Equal(t, wantRows, gotRows)
}

func TestCreate_ArrowFileRoundTrip(t *testing.T) {
	schema, recs := batches(t, 25, 10)
	path := filepath.Join(t.TempDir(), "out.arrow")

	s, err := sink.Create(path, sink.FormatArrow, schema, sink.Options{})
	require.NoError(t, err)
	writeAll(t, s, recs)
	assert.Equal(t, int64(25), s.Rows())

	_, err = os.Stat(path + ".partial")
	assert.True(t, os.IsNotExist(err))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r, err := ipc.NewFileReader(f)
	require.NoError(t, err)
	defer r.Close()
	assert.True(t, r.Schema().Equal(schema))
	require.Equal(t, len(recs), r.NumRecords())

	var got []arrow.Record
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.RecordAt(i)
		require.NoError(t, err)
		defer rec.Release()
		got = append(got, rec)
	}
	assertSameRows(t, recs, got)
}

func TestNew_ArrowStreamRoundTrip(t *testing.T) {
	for _, codec := range []string{"none", "zstd", "lz4"} {
		t.Run(codec, func(t *testing.T) {
			schema, recs := batches(t, 12, 5)

			var buf bytes.Buffer
			s, err := sink.New(&buf, sink.FormatArrowStream, schema, sink.Options{Compression: codec})
			require.NoError(t, err)
			writeAll(t, s, recs)

			r, err := ipc.NewReader(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			defer r.Release()

			var got []arrow.Record
			for r.Next() {
				rec := r.Record()
				rec.Retain()
				got = append(got, rec)
			}
			require.NoError(t, r.Err())
			defer func() {
				for _, rec := range got {
					rec.Release()
				}
			}()
			assertSameRows(t, recs, got)
		})
	}
}

func TestCreate_ParquetRoundTrip(t *testing.T) {
	for _, codec := range []string{"snappy", "zstd", "gzip", "none"} {
		t.Run(codec, func(t *testing.T) {
			schema, recs := batches(t, 30, 8)
			path := filepath.Join(t.TempDir(), "nested", "out.parquet")

			s, err := sink.Create(path, sink.FormatParquet, schema, sink.Options{Compression: codec})
			require.NoError(t, err)
			writeAll(t, s, recs)

			raw, err := os.ReadFile(path)
			require.NoError(t, err)

			tbl, err := pqarrow.ReadTable(context.Background(), bytes.NewReader(raw),
				parquet.NewReaderProperties(memory.DefaultAllocator),
				pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
			require.NoError(t, err)
			defer tbl.Release()

			assert.Equal(t, int64(30), tbl.NumRows())

			tr := array.NewTableReader(tbl, 0)
			defer tr.Release()
			var got []arrow.Record
			for tr.Next() {
				rec := tr.Record()
				rec.Retain()
				got = append(got, rec)
			}
			defer func() {
				for _, rec := range got {
					rec.Release()
				}
			}()
			assertSameRows(t, recs, got)
		})
	}
}

func TestCreate_RejectsBadCompression(t *testing.T) {
	schema, _ := batches(t, 1, 1)
	dir := t.TempDir()

	_, err := sink.Create(filepath.Join(dir, "a.parquet"), sink.FormatParquet, schema, sink.Options{Compression: "lz77"})
	assert.Error(t, err)
	_, err = sink.Create(filepath.Join(dir, "a.arrow"), sink.FormatArrow, schema, sink.Options{Compression: "snappy"})
	assert.Error(t, err)
	_, err = sink.Create(filepath.Join(dir, "a.csv"), sink.Format("csv"), schema, sink.Options{})
	assert.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAbort_RemovesPartialOutput(t *testing.T) {
	schema, recs := batches(t, 4, 4)
	path := filepath.Join(t.TempDir(), "out.arrow")

	s, err := sink.Create(path, sink.FormatArrow, schema, sink.Options{})
	require.NoError(t, err)
	require.NoError(t, s.Write(recs[0]))
	require.NoError(t, s.Abort())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(path + ".partial")
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, s.Write(recs[0]))
	assert.NoError(t, s.Close())
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    sink.Format
		wantErr bool
	}{
		{"arrow", sink.FormatArrow, false},
		{"ARROWS", sink.FormatArrowStream, false},
		{" parquet ", sink.FormatParquet, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		got, err := sink.ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "trace.parquet"), sink.OutputPath("out", "/caps/trace.pcap.gz", sink.FormatParquet))
	assert.Equal(t, filepath.Join("/caps", "trace.arrow"), sink.OutputPath("", "/caps/trace.pcap", sink.FormatArrow))

	f, ok := sink.FormatFromPath("x.PARQUET")
	assert.True(t, ok)
	assert.Equal(t, sink.FormatParquet, f)
	_, ok = sink.FormatFromPath("x.txt")
	assert.False(t, ok)
}
