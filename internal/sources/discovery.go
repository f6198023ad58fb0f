// Package sources defines the types shared by every provider's
// discovery and parsing implementation (internal/sources/claude,
// internal/sources/codex, internal/sources/gemini).
package sources

import "github.com/sessiondex/sessiondex/internal/canon"

// FileMetadata carries provider-extracted hints about a session file
// that discovery can determine cheaply (e.g. by reading just the first
// event), separate from the full parse.
type FileMetadata struct {
	GitBranch string
	CWD       string
}

// DiscoveredFile is one provider session file found on disk, with its
// computed identity and filesystem signature.
type DiscoveredFile struct {
	FilePath        string
	Provider        canon.Provider
	ProjectPath     string
	ProjectName     string
	SessionIdentity string // provider-namespaced uniqueness key
	SourceSessionID string
	FileSize        int64
	FileMtimeMs     int64
	Metadata        FileMetadata
}

// Discoverer enumerates a provider's session files under its
// configured root(s).
type Discoverer interface {
	Provider() canon.Provider
	Discover() ([]DiscoveredFile, error)
}

// ParseResult is the output of parsing one session file: an ordered
// sequence of canonical messages plus any diagnostics gathered along
// the way. A parse never aborts on a bad event; it degrades to a
// diagnostic and keeps going.
type ParseResult struct {
	Messages    []canon.Message
	Diagnostics []canon.Diagnostic
	// Models collects any model names observed while parsing (e.g.
	// Claude's per-message "model" field), for merging into the
	// session's modelNames alongside discovery metadata.
	Models []string
}

// Parser parses one provider's raw session file into canonical
// messages.
type Parser interface {
	Provider() canon.Provider
	Parse(sessionID string, filePath string) (ParseResult, error)
}
