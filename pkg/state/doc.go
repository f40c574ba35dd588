// Package state remembers which captures have already been converted.
//
// Watch mode uses it to skip files it has seen before, across restarts. An
// entry is keyed by the capture path and is considered current while the
// file's size and modification time are unchanged.
//
// # Usage
//
//	repo := state.NewFileRepository("/var/lib/capframe")
//
//	s, err := repo.Load(ctx)
//	if err != nil {
//	    return err
//	}
//	if s.Converted(path, info.Size(), info.ModTime()) {
//	    return nil
//	}
//
//	// ... convert ...
//
//	s.Record(entry)
//	if err := repo.Save(ctx, s); err != nil {
//	    return err
//	}
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package state
