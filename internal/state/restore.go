package state

import (
	"os"
	"path/filepath"

	"github.com/kanadgupta/tigerfix/internal/fs"
)

// processSequentially is a generic helper function to run a set of jobs sequentially.
func processSequentially[T any](
	items []T,
	processFn func(item T) (path string, success bool),
	progressCb func(int),
) (succeeded, failed []string) {
	numItems := len(items)
	if numItems == 0 {
		return nil, nil
	}

	for i, item := range items {
		path, success := processFn(item)
		if success {
			succeeded = append(succeeded, path)
		} else {
			failed = append(failed, path)
		}
		if progressCb != nil {
			progressCb(i + 1)
		}
	}

	return succeeded, failed
}

// UndoFiles restores the pre-images of the given operations.
func (m *Manager) UndoFiles(ops []Operation, progressCb func(int)) (undone, failed []string) {
	processFn := func(op Operation) (string, bool) {
		return op.Path, m.undoFile(op)
	}
	return processSequentially(ops, processFn, progressCb)
}

// RedoFiles restores the post-images of the given operations.
func (m *Manager) RedoFiles(ops []Operation, progressCb func(int)) (redone, failed []string) {
	processFn := func(op Operation) (string, bool) {
		return op.Path, m.redoFile(op)
	}
	return processSequentially(ops, processFn, progressCb)
}

func (m *Manager) undoFile(op Operation) bool {
	currentHash, err := fs.GetFileSHA256(op.Path)
	if err != nil {
		return false
	}

	// Core safety check: if the file was changed outside the recorded
	// operation, abort the undo for this file.
	if currentHash != op.PostHash {
		return false
	}

	content, err := os.ReadFile(m.imagePath(op.PreImage))
	if err != nil {
		return false
	}
	return fs.WriteFileAtomic(op.Path, string(content)) == nil
}

func (m *Manager) redoFile(op Operation) bool {
	currentHash, err := fs.GetFileSHA256(op.Path)
	if err != nil {
		return false
	}

	// Same safety check in the other direction: the file must match the
	// pre-image state before a redo may overwrite it.
	if currentHash != op.PreHash {
		return false
	}

	content, err := os.ReadFile(m.imagePath(op.PostImage))
	if err != nil {
		return false
	}
	return fs.WriteFileAtomic(op.Path, string(content)) == nil
}

func (m *Manager) imagePath(relative string) string {
	return filepath.Join(m.StateDir, relative)
}
