// Package prompt loads prompt templates from the prompts directory,
// falling back to the embedded defaults so the service works without any
// deployed prompt files.
package prompt

import (
	"embed"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

//go:embed defaults/*.txt
var defaultFS embed.FS

const (
	TransformPrompt  = "transform-prompt.txt"
	ValidationPrompt = "content-validation-prompt.txt"
)

// Loader resolves named prompts, preferring files in dir over the
// embedded defaults. Files are re-read per call so prompt edits apply
// without a restart.
type Loader struct {
	dir    string
	logger *slog.Logger
}

func NewLoader(dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{dir: dir, logger: logger}
}

// Load returns the prompt text for name. A missing or empty override file
// silently falls back to the embedded default; any other read error is
// logged first.
func (l *Loader) Load(name string) string {
	if l.dir != "" {
		data, err := os.ReadFile(filepath.Join(l.dir, name))
		switch {
		case err == nil:
			if text := strings.TrimSpace(string(data)); text != "" {
				return text
			}
		case !os.IsNotExist(err):
			l.logger.Warn("cannot read prompt file, using default", "name", name, "error", err)
		}
	}

	data, err := defaultFS.ReadFile("defaults/" + name)
	if err != nil {
		// Unknown prompt name. Callers pass the package constants, so
		// this is a programming error worth surfacing loudly.
		l.logger.Error("unknown prompt", "name", name)
		return ""
	}
	return strings.TrimSpace(string(data))
}
