package batch

// Version information for the batch module.
const (
	// Version is the current version of the batch module.
	Version = "1.1.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	// 1.1.0 widened the data column to large_binary.
	MinCompatibleVersion = "1.1.0"
)
