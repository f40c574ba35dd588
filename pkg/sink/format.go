package sink

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is an output file format.
type Format string

const (
	FormatArrow       Format = "arrow"
	FormatArrowStream Format = "arrows"
	FormatParquet     Format = "parquet"
)

// Formats lists every supported format.
var Formats = []Format{FormatArrow, FormatArrowStream, FormatParquet}

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want arrow, arrows or parquet)", s)
}

// Extension returns the conventional file extension, dot included.
func (f Format) Extension() string {
	switch f {
	case FormatArrowStream:
		return ".arrows"
	case FormatParquet:
		return ".parquet"
	default:
		return ".arrow"
	}
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".arrow", ".feather":
		return FormatArrow, true
	case ".arrows":
		return FormatArrowStream, true
	case ".parquet", ".pq":
		return FormatParquet, true
	}
	return "", false
}

// OutputPath derives the output file for input in dir. Compression and
// capture extensions are stripped: trace.pcap.gz becomes trace<ext>.
func OutputPath(dir, input string, f Format) string {
	base := filepath.Base(input)
	for _, ext := range []string{".gz", ".pcap", ".cap"} {
		base = strings.TrimSuffix(base, ext)
	}
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, base+f.Extension())
}
