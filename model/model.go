package model

// Kind identifies the type of an Edit.
type Kind string

const (
	// DeleteLine removes every line whose full content equals Exact.
	DeleteLine Kind = "delete-line"
	// ReplaceSubstring replaces every occurrence of Old with New on every line.
	ReplaceSubstring Kind = "replace"
)

// Edit is a single declarative text transformation applied to a file.
// Matching is literal; no pattern syntax is interpreted.
type Edit struct {
	Kind  Kind
	Exact string // delete-line: full line content to remove
	Old   string // replace: substring to find
	New   string // replace: replacement text
}

// FilePatch groups the ordered edits targeting one file.
type FilePatch struct {
	File  string
	Edits []Edit
}

// EditResult records the effect of one edit on a file's content.
type EditResult struct {
	Edit         Edit
	LinesDeleted int
	Replacements int
}

// FileResult summarizes all edits applied to a single file.
type FileResult struct {
	Path    string
	Changed bool
	Results []EditResult
}

// Summary holds the results of an operation for display.
type Summary struct {
	Modified  []string
	Unchanged []string
	Failed    []string
	Message   string
}

// Empty reports whether the summary carries nothing worth displaying.
func (s Summary) Empty() bool {
	return s.Message == "" && len(s.Modified) == 0 && len(s.Unchanged) == 0 && len(s.Failed) == 0
}
