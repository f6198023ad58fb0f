package codex

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sessiondex/sessiondex/internal/canon"
	"github.com/sessiondex/sessiondex/internal/jsonl"
	"github.com/sessiondex/sessiondex/internal/sources"
)

const envHomeOverride = "SESSIONDEX_CODEX_HOME"

// DefaultRoot returns the Codex home, honoring SESSIONDEX_CODEX_HOME,
// falling back to ~/.codex.
func DefaultRoot() string {
	if v := os.Getenv(envHomeOverride); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codex"
	}
	return filepath.Join(home, ".codex")
}

// Discoverer walks <root>/sessions/YYYY/MM/DD/**/*.jsonl.
type Discoverer struct {
	Root string
}

func NewDiscoverer(root string) *Discoverer {
	if root == "" {
		root = DefaultRoot()
	}
	return &Discoverer{Root: root}
}

func (d *Discoverer) Provider() canon.Provider { return canon.ProviderCodex }

func (d *Discoverer) Discover() ([]sources.DiscoveredFile, error) {
	sessionsDir := filepath.Join(d.Root, "sessions")
	var out []sources.DiscoveredFile

	err := filepath.WalkDir(sessionsDir, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return nil
		}
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".jsonl") {
			return nil
		}
		meta, ok := readSessionMeta(path)
		if !ok {
			return nil
		}
		info, err := de.Info()
		if err != nil {
			return nil
		}
		projectPath := meta.CWD
		if projectPath == "" {
			projectPath = "unknown"
		}
		out = append(out, sources.DiscoveredFile{
			FilePath:        path,
			Provider:        canon.ProviderCodex,
			ProjectPath:     projectPath,
			ProjectName:     filepath.Base(projectPath),
			SessionIdentity: "codex:" + meta.ID + ":" + hashPath(path),
			SourceSessionID: meta.ID,
			FileSize:        info.Size(),
			FileMtimeMs:     info.ModTime().UnixMilli(),
			Metadata:        sources.FileMetadata{GitBranch: meta.GitBranch, CWD: meta.CWD},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type sessionMeta struct {
	ID        string
	CWD       string
	GitBranch string
}

type sessionMetaLine struct {
	Type    string `json:"type"`
	Payload struct {
		ID      string `json:"id"`
		CWD     string `json:"cwd"`
		Model   string `json:"model"`
		Git     struct {
			Branch string `json:"branch"`
		} `json:"git"`
	} `json:"payload"`
}

// readSessionMeta reads only the first line of path, looking for a
// session_meta event. Returns ok=false if the file is empty, unreadable,
// or its first line is not a session_meta.
func readSessionMeta(path string) (sessionMeta, bool) {
	r, err := jsonl.Open(path)
	if err != nil {
		return sessionMeta{}, false
	}
	defer r.Close()

	line, err := r.Next()
	if err != nil {
		return sessionMeta{}, false
	}
	var sm sessionMetaLine
	if err := json.Unmarshal(line, &sm); err != nil {
		return sessionMeta{}, false
	}
	if sm.Type != "session_meta" || sm.Payload.ID == "" {
		return sessionMeta{}, false
	}
	return sessionMeta{ID: sm.Payload.ID, CWD: sm.Payload.CWD, GitBranch: sm.Payload.Git.Branch}, true
}

func hashPath(path string) string {
	// A short, stable, filesystem-derived disambiguator; full
	// collision-resistant hashing happens in internal/ident once the
	// session's canonical id is computed. This only needs to keep two
	// copies of an identical source session id distinct within
	// sessionIdentity.
	sum := 0
	for i := 0; i < len(path); i++ {
		sum = sum*31 + int(path[i])
	}
	if sum < 0 {
		sum = -sum
	}
	return itoaHex(sum)
}

func itoaHex(n int) string {
	const digits = "0123456789abcdef"
	if n == 0 {
		return "0"
	}
	var buf [16]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = digits[n%16]
		n /= 16
	}
	return string(buf[i:])
}
