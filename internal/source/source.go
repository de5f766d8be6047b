package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/kanadgupta/tigerfix/internal/fs"
	"github.com/kanadgupta/tigerfix/internal/ui"
)

// SourceProvider determines and retrieves the patch script content.
type SourceProvider struct{}

// New creates a new SourceProvider.
func New() *SourceProvider {
	return &SourceProvider{}
}

// GetContent retrieves script content from the given file path, from stdin
// (if piped), or from the clipboard, in that order of preference.
func (sp *SourceProvider) GetContent(path string) (string, error) {
	if path != "" {
		ui.Header("--- Reading script from %s ---", path)
		return fs.ReadFile(path)
	}

	stat, _ := os.Stdin.Stat()
	isPiped := (stat.Mode() & os.ModeCharDevice) == 0

	if isPiped {
		ui.Header("--- Reading script from stdin ---")
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(content), nil
	}

	ui.Header("--- Reading script from clipboard ---")
	content, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read from clipboard: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		ui.Warning("Clipboard is empty. Nothing to process.")
		return "", nil
	}
	return content, nil
}
