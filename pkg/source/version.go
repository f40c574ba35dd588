package source

// Version information for the source module.
const (
	// Version is the current version of the source module.
	Version = "1.1.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	// 1.1.0 made WithMaxRows(0) emit nothing.
	MinCompatibleVersion = "1.1.0"
)
