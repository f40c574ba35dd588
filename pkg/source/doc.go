// Package source streams a pcap capture as Arrow record batches.
//
// A [Source] is one reading session over one capture. It parses the global
// header on construction, then hands out batches on demand:
//
//	src, err := source.Open("trace.pcap", source.WithBatchSize(4096))
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//
//	for {
//	    rec, err := src.Next()
//	    if errors.Is(err, source.ErrNoMoreData) {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    // Process rec...
//	    rec.Release()
//	}
//
// # Pull results
//
// Every pull ends in exactly one of three ways: a non-empty record, the
// [ErrNoMoreData] sentinel, or a fatal error from package pcap
// (*pcap.FormatError, *pcap.TruncatedInputError, *pcap.CorruptRecordError)
// or the underlying reader. Once a pull fails, every later pull returns the
// same error; once data runs out, every later pull returns [ErrNoMoreData].
//
// # Concurrency
//
// A Source is single-threaded. Pulls block on the underlying reader and
// cannot be cancelled. Callers sharing a Source must serialize access.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package source
