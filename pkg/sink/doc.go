// Package sink writes packet batches to files.
//
// Three formats are supported:
//
//   - arrow: Arrow IPC file format, random access, footer at the end
//   - arrows: Arrow IPC stream format
//   - parquet: Apache Parquet, one row group per flushed batch
//
// Files are written under a temporary name and renamed into place on Close,
// so a reader never sees a half-written output:
//
//	s, err := sink.Create("out.parquet", sink.FormatParquet, src.Schema(), sink.Options{})
//	if err != nil {
//	    return err
//	}
//	defer s.Abort()
//
//	// s.Write(rec) for every batch...
//
//	return s.Close()
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package sink
