// Package pcap reads classic libpcap capture files.
//
// The package is split in two steps that mirror the file layout: [ParseHeader]
// consumes the 24-byte global header once, and a [FrameReader] then yields one
// [FrameRecord] per packet record until the stream ends.
//
// # Usage
//
//	hdr, err := pcap.ParseHeader(r)
//	if err != nil {
//	    return err
//	}
//	fr := pcap.NewFrameReader(r, hdr)
//	for {
//	    rec, err := fr.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err // *FormatError, *TruncatedInputError or *CorruptRecordError
//	    }
//	    // Process rec...
//	}
//
// Both byte orders and both timestamp precisions (microsecond and nanosecond
// magic numbers) are supported. pcapng is not.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package pcap
