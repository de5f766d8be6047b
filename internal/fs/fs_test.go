package fs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ranges.csv")
	content := "1;99;all;Main St;Clark;NV;88901\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if got != content {
		t.Errorf("ReadFile = %q, want %q", got, content)
	}
}

func TestReadFileNotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.csv")

	_, err := ReadFile(missing)
	if err == nil {
		t.Fatal("Expected an error for a missing file")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), missing) {
		t.Errorf("Error should name the path, got %q", err)
	}
}

func TestReadFileIOError(t *testing.T) {
	// Reading a directory as a file is an i/o failure, not a not-found.
	dir := t.TempDir()

	_, err := ReadFile(dir)
	if err == nil {
		t.Fatal("Expected an error when reading a directory")
	}
	if !errors.Is(err, ErrIO) {
		t.Errorf("Expected ErrIO, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("Directory read misclassified as not-found: %v", err)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	if err := WriteFileAtomic(path, "first\n"); err != nil {
		t.Fatalf("WriteFileAtomic failed on a new file: %v", err)
	}
	if err := WriteFileAtomic(path, "second\n"); err != nil {
		t.Fatalf("WriteFileAtomic failed on an existing file: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read back: %v", err)
	}
	if string(got) != "second\n" {
		t.Errorf("Content = %q, want %q", got, "second\n")
	}

	// No temporary files may survive a successful write.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to list dir: %v", err)
	}
	if len(entries) != 1 {
		for _, e := range entries {
			t.Logf("Leftover entry: %s", e.Name())
		}
		t.Errorf("Expected only the target file, found %d entries", len(entries))
	}
}

func TestWriteFileAtomicPreservesPermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strict.csv")
	if err := os.WriteFile(path, []byte("old\n"), 0600); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	if err := WriteFileAtomic(path, "new\n"); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Permissions = %o, want 0600", perm)
	}
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-dir", "out.csv")

	err := WriteFileAtomic(path, "content\n")
	if err == nil {
		t.Fatal("Expected an error for a missing parent directory")
	}
	if !errors.Is(err, ErrIO) {
		t.Errorf("Expected ErrIO, got %v", err)
	}
}

func TestHashesAgree(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hash.csv")
	content := "100;198;all;Olympia Ridge Dr;Clark;NV;88914\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	fromFile, err := GetFileSHA256(path)
	if err != nil {
		t.Fatalf("GetFileSHA256 failed: %v", err)
	}
	fromContent := ContentSHA256(content)

	if fromFile != fromContent {
		t.Errorf("Hash mismatch: file %s, content %s", fromFile, fromContent)
	}
	if len(fromFile) != 64 {
		t.Errorf("Expected a hex SHA-256, got %q", fromFile)
	}
	if ContentSHA256("something else") == fromContent {
		t.Error("Different contents hashed identically")
	}
}

func TestPathResolver(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()

	inB := filepath.Join(dirB, "only-in-b.csv")
	if err := os.WriteFile(inB, []byte("x\n"), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	r := NewPathResolver([]string{dirA, dirB})

	t.Run("searches lookup dirs in order", func(t *testing.T) {
		got, err := r.Resolve("only-in-b.csv")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if got != inB {
			t.Errorf("Resolve = %q, want %q", got, inB)
		}
	})

	t.Run("earlier dir wins", func(t *testing.T) {
		inA := filepath.Join(dirA, "shared.csv")
		if err := os.WriteFile(inA, []byte("a\n"), 0644); err != nil {
			t.Fatalf("Failed to write fixture: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dirB, "shared.csv"), []byte("b\n"), 0644); err != nil {
			t.Fatalf("Failed to write fixture: %v", err)
		}

		got, err := r.Resolve("shared.csv")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if got != inA {
			t.Errorf("Resolve = %q, want %q", got, inA)
		}
	})

	t.Run("absolute path bypasses lookup dirs", func(t *testing.T) {
		got, err := r.Resolve(inB)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if got != inB {
			t.Errorf("Resolve = %q, want %q", got, inB)
		}
	})

	t.Run("missing file is not found", func(t *testing.T) {
		_, err := r.Resolve("absent.csv")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("resolution never creates files", func(t *testing.T) {
		if got := r.ResolveExisting("absent.csv"); got != "" {
			t.Errorf("ResolveExisting invented a path: %q", got)
		}
		if _, err := os.Stat(filepath.Join(dirA, "absent.csv")); !os.IsNotExist(err) {
			t.Error("Resolution created a file")
		}
	})
}
