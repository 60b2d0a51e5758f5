// Package backend opens the durable store selected by configuration.
package backend

import (
	"context"

	"fintrack/internal/storage"
)

type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

func (t Type) String() string { return string(t) }

func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Types lists every supported backend.
func Types() []Type {
	return []Type{SQLiteBackend, MemoryBackend}
}

type Config struct {
	Type         Type
	SQLiteDBPath string
	// SeedDir preloads the memory backend from <key>.json files.
	SeedDir string
}

type CleanupFunc func() error

// Result is an opened backend. SQLite is nil unless Type is sqlite; it also
// serves the audit event log.
type Result struct {
	Store   storage.BlobStore
	SQLite  *storage.SQLiteStore
	Cleanup CleanupFunc
}

// Ping reports whether the backend is usable. The memory backend always is.
func (r *Result) Ping(ctx context.Context) error {
	if r.SQLite == nil {
		return nil
	}
	return r.SQLite.Ping(ctx)
}

// Close runs Cleanup once it is set.
func (r *Result) Close() error {
	if r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}
