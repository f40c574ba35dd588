package state

import (
	"sort"
	"time"
)

// Entry records one converted capture.
type Entry struct {
	// Path is the capture file path as seen by the watcher
	Path string `json:"path"`

	// Size and ModTime identify the version of the file that was converted
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`

	// Rows is the number of packets written
	Rows uint64 `json:"rows"`

	// Output is the path of the converted file
	Output string `json:"output,omitempty"`

	// Error is set when conversion failed; the file is not retried until it changes
	Error string `json:"error,omitempty"`

	ConvertedAt time.Time `json:"converted_at"`
}

// State is the set of converted captures.
type State struct {
	Files map[string]Entry `json:"files"`
}

// IsEmpty returns true if nothing has been recorded.
func (s State) IsEmpty() bool {
	return len(s.Files) == 0
}

// Lookup returns the entry for path.
func (s State) Lookup(path string) (Entry, bool) {
	e, ok := s.Files[path]
	return e, ok
}

// Converted reports whether path was already handled at this size and
// modification time.
func (s State) Converted(path string, size int64, modTime time.Time) bool {
	e, ok := s.Files[path]
	return ok && e.Size == size && e.ModTime.Equal(modTime)
}

// Record stores e, replacing any earlier entry for the same path.
func (s *State) Record(e Entry) {
	if s.Files == nil {
		s.Files = make(map[string]Entry)
	}
	if e.ConvertedAt.IsZero() {
		e.ConvertedAt = time.Now().UTC()
	}
	s.Files[e.Path] = e
}

// Forget drops the entry for path.
func (s *State) Forget(path string) {
	delete(s.Files, path)
}

// Paths returns the recorded capture paths in sorted order.
func (s State) Paths() []string {
	paths := make([]string, 0, len(s.Files))
	for p := range s.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
