package claude

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sessiondex/sessiondex/internal/canon"
	"github.com/sessiondex/sessiondex/internal/sources"
)

// envHomeOverride lets operators redirect discovery during tests and
// alternate installs without touching the real home directory.
const envHomeOverride = "SESSIONDEX_CLAUDE_HOME"

// DefaultRoot returns the Claude projects root, honoring
// SESSIONDEX_CLAUDE_HOME, falling back to ~/.claude.
func DefaultRoot() string {
	if v := os.Getenv(envHomeOverride); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".claude"
	}
	return filepath.Join(home, ".claude")
}

// Discoverer walks <root>/projects/<project-slug>/*.jsonl.
type Discoverer struct {
	Root string
}

// NewDiscoverer builds a Discoverer rooted at root, or DefaultRoot()
// when root is empty.
func NewDiscoverer(root string) *Discoverer {
	if root == "" {
		root = DefaultRoot()
	}
	return &Discoverer{Root: root}
}

func (d *Discoverer) Provider() canon.Provider { return canon.ProviderClaude }

func (d *Discoverer) Discover() ([]sources.DiscoveredFile, error) {
	projectsDir := filepath.Join(d.Root, "projects")
	entries, err := os.ReadDir(projectsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []sources.DiscoveredFile
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dirName := e.Name()
		projectPath := DecodeDirName(dirName)
		projectDir := filepath.Join(projectsDir, dirName)

		sessionFiles, err := os.ReadDir(projectDir)
		if err != nil {
			continue
		}
		for _, sf := range sessionFiles {
			if sf.IsDir() || !strings.HasSuffix(sf.Name(), ".jsonl") {
				continue
			}
			stem := strings.TrimSuffix(sf.Name(), ".jsonl")
			fullPath := filepath.Join(projectDir, sf.Name())
			info, err := sf.Info()
			if err != nil {
				continue
			}
			out = append(out, sources.DiscoveredFile{
				FilePath:        fullPath,
				Provider:        canon.ProviderClaude,
				ProjectPath:     projectPath,
				ProjectName:     filepath.Base(projectPath),
				SessionIdentity: "claude:" + stem,
				SourceSessionID: stem,
				FileSize:        info.Size(),
				FileMtimeMs:     info.ModTime().UnixMilli(),
			})
		}
	}
	return out, nil
}
