// Package capframe streams classic pcap captures as Apache Arrow record
// batches.
//
// Example usage:
//
//	src, err := capframe.Open("trace.pcap", capframe.WithBatchSize(4096))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer src.Close()
//
//	fmt.Println(src.Schema())
//	for {
//	    rec, err := src.Next()
//	    if errors.Is(err, capframe.ErrNoMoreData) {
//	        break
//	    }
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    // ...
//	    rec.Release()
//	}
//
// The packages under pkg/ carry their own versions. Open and New refuse to
// start a session when one of them is older than the version this package
// requires, or has dropped support for it.
package capframe

import (
	"fmt"
	"io"

	"github.com/bft-labs/capframe/pkg/batch"
	"github.com/bft-labs/capframe/pkg/filter"
	"github.com/bft-labs/capframe/pkg/log"
	"github.com/bft-labs/capframe/pkg/pcap"
	"github.com/bft-labs/capframe/pkg/sink"
	"github.com/bft-labs/capframe/pkg/source"
	"github.com/bft-labs/capframe/pkg/state"
)

// Source is a streaming session over one capture.
type Source = source.Source

// Option configures a Source.
type Option = source.Option

// Error types returned by Open and by pulls.
type (
	FormatError         = pcap.FormatError
	TruncatedInputError = pcap.TruncatedInputError
	CorruptRecordError  = pcap.CorruptRecordError
)

// ErrNoMoreData ends every exhausted session. It is io.EOF.
var ErrNoMoreData = source.ErrNoMoreData

// Sentinels matched by errors.Is.
var (
	ErrFormat        = pcap.ErrFormat
	ErrTruncated     = pcap.ErrTruncated
	ErrCorruptRecord = pcap.ErrCorruptRecord
)

// DefaultBatchSize is the default number of rows per pull.
const DefaultBatchSize = source.DefaultBatchSize

var (
	WithBatchSize = source.WithBatchSize
	WithMaxRows   = source.WithMaxRows
	WithAllocator = source.WithAllocator
	WithLogger    = source.WithLogger
)

// Open starts a session over the capture file at path.
func Open(path string, opts ...Option) (*Source, error) {
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}
	return source.Open(path, opts...)
}

// New starts a session over r.
func New(r io.Reader, opts ...Option) (*Source, error) {
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}
	return source.New(r, opts...)
}

// moduleVersion pairs a package's reported versions with the version the
// facade requires.
type moduleVersion struct {
	name       string
	version    string
	minVersion string
	required   string
}

// moduleVersions lists the packages the facade re-exports. batch 1.1.0 has
// the large_binary data column; source 1.1.0 treats WithMaxRows(0) as a cap.
func moduleVersions() []moduleVersion {
	return []moduleVersion{
		{"pcap", pcap.Version, pcap.MinCompatibleVersion, "1.0.0"},
		{"batch", batch.Version, batch.MinCompatibleVersion, "1.1.0"},
		{"source", source.Version, source.MinCompatibleVersion, "1.1.0"},
		{"filter", filter.Version, filter.MinCompatibleVersion, "1.0.0"},
		{"sink", sink.Version, sink.MinCompatibleVersion, "1.0.0"},
		{"state", state.Version, state.MinCompatibleVersion, "1.0.0"},
		{"log", log.Version, log.MinCompatibleVersion, "1.0.0"},
	}
}

// validateModuleVersions checks that all module versions are compatible.
func validateModuleVersions() error {
	return checkModuleVersions(moduleVersions())
}

// checkModuleVersions returns an error if a module is older than required,
// or no longer compatible with the required version.
func checkModuleVersions(modules []moduleVersion) error {
	for _, m := range modules {
		if !isVersionCompatible(m.version, m.required) {
			return fmt.Errorf("module %s version %s is below required version %s",
				m.name, m.version, m.required)
		}
		if !isVersionCompatible(m.required, m.minVersion) {
			return fmt.Errorf("module %s version %s no longer supports version %s (minimum %s)",
				m.name, m.version, m.required, m.minVersion)
		}
	}
	return nil
}

// isVersionCompatible checks if version >= minVersion using semantic versioning.
// Assumes versions are in format "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
