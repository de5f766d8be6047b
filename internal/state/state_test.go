package state

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// writeTarget creates a patch target inside root and returns its path.
func writeTarget(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write target file: %v", err)
	}
	return path
}

func readBack(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read back %s: %v", path, err)
	}
	return string(data)
}

func TestWriteUndoRedoRoundtrip(t *testing.T) {
	root := t.TempDir()
	m, err := newAt(root)
	if err != nil {
		t.Fatalf("Failed to create state manager: %v", err)
	}

	pre := "45;1;all;Woodfall Rd;Middlesex;MA;02478\nkeep\n"
	post := "keep\n"
	path := writeTarget(t, root, "25017.csv", post)

	if err := m.Write([]Change{{Path: path, PreContent: pre, PostContent: post}}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	ops, err := m.GetOperationsToUndo()
	if err != nil {
		t.Fatalf("GetOperationsToUndo failed: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("Expected 1 operation, got %d", len(ops))
	}

	undone, failed := m.UndoFiles(ops, nil)
	if len(failed) != 0 {
		t.Fatalf("Undo failed for %v", failed)
	}
	if len(undone) != 1 || undone[0] != path {
		t.Errorf("Undo reported %v, want [%s]", undone, path)
	}
	if got := readBack(t, path); got != pre {
		t.Errorf("Undo restored %q, want %q", got, pre)
	}

	ops, err = m.GetOperationsToRedo()
	if err != nil {
		t.Fatalf("GetOperationsToRedo failed: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("Expected 1 redo operation, got %d", len(ops))
	}

	redone, failed := m.RedoFiles(ops, nil)
	if len(failed) != 0 {
		t.Fatalf("Redo failed for %v", failed)
	}
	if len(redone) != 1 {
		t.Errorf("Redo reported %v", redone)
	}
	if got := readBack(t, path); got != post {
		t.Errorf("Redo restored %q, want %q", got, post)
	}
}

func TestUndoRefusesExternallyModifiedFile(t *testing.T) {
	root := t.TempDir()
	m, err := newAt(root)
	if err != nil {
		t.Fatalf("Failed to create state manager: %v", err)
	}

	path := writeTarget(t, root, "32003.csv", "patched\n")
	if err := m.Write([]Change{{Path: path, PreContent: "original\n", PostContent: "patched\n"}}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// Simulate an edit made outside the tool after the patch run.
	if err := os.WriteFile(path, []byte("hand edited\n"), 0644); err != nil {
		t.Fatalf("Failed to modify target: %v", err)
	}

	ops, err := m.GetOperationsToUndo()
	if err != nil {
		t.Fatalf("GetOperationsToUndo failed: %v", err)
	}
	undone, failed := m.UndoFiles(ops, nil)
	if len(undone) != 0 {
		t.Errorf("Undo overwrote an externally modified file: %v", undone)
	}
	if len(failed) != 1 {
		t.Errorf("Expected 1 failed undo, got %v", failed)
	}
	if got := readBack(t, path); got != "hand edited\n" {
		t.Errorf("External edit was clobbered, file now %q", got)
	}
}

func TestRedoRefusesExternallyModifiedFile(t *testing.T) {
	root := t.TempDir()
	m, err := newAt(root)
	if err != nil {
		t.Fatalf("Failed to create state manager: %v", err)
	}

	path := writeTarget(t, root, "32003.csv", "patched\n")
	if err := m.Write([]Change{{Path: path, PreContent: "original\n", PostContent: "patched\n"}}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	ops, _ := m.GetOperationsToUndo()
	if _, failed := m.UndoFiles(ops, nil); len(failed) != 0 {
		t.Fatalf("Undo failed for %v", failed)
	}

	if err := os.WriteFile(path, []byte("hand edited\n"), 0644); err != nil {
		t.Fatalf("Failed to modify target: %v", err)
	}

	ops, err = m.GetOperationsToRedo()
	if err != nil {
		t.Fatalf("GetOperationsToRedo failed: %v", err)
	}
	redone, failed := m.RedoFiles(ops, nil)
	if len(redone) != 0 {
		t.Errorf("Redo overwrote an externally modified file: %v", redone)
	}
	if len(failed) != 1 {
		t.Errorf("Expected 1 failed redo, got %v", failed)
	}
}

func TestFreshManagerHasNoHistory(t *testing.T) {
	m, err := newAt(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create state manager: %v", err)
	}

	ops, err := m.GetOperationsToUndo()
	if err != nil {
		t.Fatalf("GetOperationsToUndo failed: %v", err)
	}
	if len(ops) != 0 {
		t.Errorf("Fresh manager returned undo operations: %v", ops)
	}

	ops, err = m.GetOperationsToRedo()
	if err != nil {
		t.Fatalf("GetOperationsToRedo failed: %v", err)
	}
	if len(ops) != 0 {
		t.Errorf("Fresh manager returned redo operations: %v", ops)
	}
}

func TestWriteWithoutChangesRecordsNothing(t *testing.T) {
	root := t.TempDir()
	m, err := newAt(root)
	if err != nil {
		t.Fatalf("Failed to create state manager: %v", err)
	}

	if err := m.Write(nil); err != nil {
		t.Fatalf("Write(nil) failed: %v", err)
	}
	if ops, _ := m.GetOperationsToUndo(); len(ops) != 0 {
		t.Errorf("Empty write produced history: %v", ops)
	}
}

func TestWriteTruncatesRedoTail(t *testing.T) {
	root := t.TempDir()
	m, err := newAt(root)
	if err != nil {
		t.Fatalf("Failed to create state manager: %v", err)
	}

	path := writeTarget(t, root, "a.csv", "v2\n")
	if err := m.Write([]Change{{Path: path, PreContent: "v1\n", PostContent: "v2\n"}}); err != nil {
		t.Fatalf("First write failed: %v", err)
	}
	firstBackup := m.state.History[0].Backup

	ops, _ := m.GetOperationsToUndo()
	if _, failed := m.UndoFiles(ops, nil); len(failed) != 0 {
		t.Fatalf("Undo failed for %v", failed)
	}

	// A new write while an entry sits undone discards that entry and its
	// backup images.
	if err := os.WriteFile(path, []byte("v3\n"), 0644); err != nil {
		t.Fatalf("Failed to update target: %v", err)
	}
	if err := m.Write([]Change{{Path: path, PreContent: "v1\n", PostContent: "v3\n"}}); err != nil {
		t.Fatalf("Second write failed: %v", err)
	}

	if len(m.state.History) != 1 {
		t.Fatalf("Expected 1 history entry after truncation, got %d", len(m.state.History))
	}
	if m.state.History[0].Backup == firstBackup {
		t.Error("Truncation kept the stale entry")
	}

	staleDir := filepath.Join(m.StateDir, backupsDirName, firstBackup)
	if _, err := os.Stat(staleDir); !os.IsNotExist(err) {
		t.Errorf("Stale backup directory survived: %s", staleDir)
	}

	if ops, _ := m.GetOperationsToRedo(); len(ops) != 0 {
		t.Errorf("Redo available past the truncated tail: %v", ops)
	}
}

func TestHistoryPersistsAcrossManagers(t *testing.T) {
	root := t.TempDir()
	m1, err := newAt(root)
	if err != nil {
		t.Fatalf("Failed to create state manager: %v", err)
	}

	path := writeTarget(t, root, "a.csv", "post\n")
	if err := m1.Write([]Change{{Path: path, PreContent: "pre\n", PostContent: "post\n"}}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	m2, err := newAt(root)
	if err != nil {
		t.Fatalf("Failed to reopen state manager: %v", err)
	}
	ops, err := m2.GetOperationsToUndo()
	if err != nil {
		t.Fatalf("GetOperationsToUndo failed: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("Reloaded manager lost history, got %d operations", len(ops))
	}

	if _, failed := m2.UndoFiles(ops, nil); len(failed) != 0 {
		t.Fatalf("Undo through reloaded manager failed for %v", failed)
	}
	if got := readBack(t, path); got != "pre\n" {
		t.Errorf("Undo restored %q, want %q", got, "pre\n")
	}
}

func TestCorruptHistoryStartsFresh(t *testing.T) {
	root := t.TempDir()
	stateDir := filepath.Join(root, stateDirName)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		t.Fatalf("Failed to create state dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(stateDir, stateFileName), []byte("{not yaml"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt history: %v", err)
	}

	m, err := newAt(root)
	if err != nil {
		t.Fatalf("Corrupt history blocked the manager: %v", err)
	}
	if ops, _ := m.GetOperationsToUndo(); len(ops) != 0 {
		t.Errorf("Corrupt history produced operations: %v", ops)
	}
}

func TestOutOfRangeHistoryIndexStartsFresh(t *testing.T) {
	// Well-formed YAML whose index points outside the history slice must be
	// treated as corrupt, not handed to the redo and write paths.
	const historyTemplate = `current_index: %d
history:
  - timestamp: 1
    backup: "1"
    operations:
      - path: a.csv
        pre_hash: aa
        post_hash: bb
        pre_image: backups/1/0.pre
        post_image: backups/1/0.post
`

	for _, tc := range []struct {
		name  string
		index int
	}{
		{"negative index", -7},
		{"index beyond history", 3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			stateDir := filepath.Join(root, stateDirName)
			if err := os.MkdirAll(stateDir, 0755); err != nil {
				t.Fatalf("Failed to create state dir: %v", err)
			}
			history := fmt.Sprintf(historyTemplate, tc.index)
			if err := os.WriteFile(filepath.Join(stateDir, stateFileName), []byte(history), 0644); err != nil {
				t.Fatalf("Failed to write history: %v", err)
			}

			m, err := newAt(root)
			if err != nil {
				t.Fatalf("Out-of-range index blocked the manager: %v", err)
			}
			if ops, _ := m.GetOperationsToRedo(); len(ops) != 0 {
				t.Errorf("Out-of-range index produced redo operations: %v", ops)
			}

			path := writeTarget(t, root, "a.csv", "v2\n")
			if err := m.Write([]Change{{Path: path, PreContent: "v1\n", PostContent: "v2\n"}}); err != nil {
				t.Fatalf("Write after discarded history failed: %v", err)
			}
			if len(m.state.History) != 1 || m.state.CurrentIndex != 0 {
				t.Errorf("Expected a single fresh entry, got index %d with %d entries",
					m.state.CurrentIndex, len(m.state.History))
			}
		})
	}
}

func TestOperationsSortedByPath(t *testing.T) {
	root := t.TempDir()
	m, err := newAt(root)
	if err != nil {
		t.Fatalf("Failed to create state manager: %v", err)
	}

	pathB := writeTarget(t, root, "b.csv", "b2\n")
	pathA := writeTarget(t, root, "a.csv", "a2\n")
	changes := []Change{
		{Path: pathB, PreContent: "b1\n", PostContent: "b2\n"},
		{Path: pathA, PreContent: "a1\n", PostContent: "a2\n"},
	}
	if err := m.Write(changes); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	ops, err := m.GetOperationsToUndo()
	if err != nil {
		t.Fatalf("GetOperationsToUndo failed: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("Expected 2 operations, got %d", len(ops))
	}
	if ops[0].Path != pathA || ops[1].Path != pathB {
		t.Errorf("Operations not sorted by path: %s, %s", ops[0].Path, ops[1].Path)
	}

	var steps []int
	undone, failed := m.UndoFiles(ops, func(done int) {
		steps = append(steps, done)
	})
	if len(failed) != 0 {
		t.Fatalf("Undo failed for %v", failed)
	}
	if len(undone) != 2 {
		t.Errorf("Expected 2 undone files, got %v", undone)
	}
	if len(steps) != 2 || steps[0] != 1 || steps[1] != 2 {
		t.Errorf("Progress callback saw %v, want [1 2]", steps)
	}
}
