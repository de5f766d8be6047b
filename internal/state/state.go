package state

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kanadgupta/tigerfix/internal/fs"
)

const (
	stateDirName   = ".tigerfix"
	stateFileName  = "history.yaml"
	backupsDirName = "backups"
)

// Operation records one file mutation within a history entry. Image paths
// are relative to the state directory.
type Operation struct {
	Path      string `yaml:"path"`
	PreHash   string `yaml:"pre_hash"`
	PostHash  string `yaml:"post_hash"`
	PreImage  string `yaml:"pre_image"`
	PostImage string `yaml:"post_image"`
}

// HistoryEntry represents one complete mutating run of the tool.
type HistoryEntry struct {
	Timestamp  int64       `yaml:"timestamp"`
	Backup     string      `yaml:"backup"`
	Operations []Operation `yaml:"operations"`
}

// State represents the entire history file.
type State struct {
	History      []HistoryEntry `yaml:"history"`
	CurrentIndex int            `yaml:"current_index"`
}

// Change describes one applied file mutation to be recorded in history.
type Change struct {
	Path        string
	PreContent  string
	PostContent string
}

// Manager handles the lifecycle of the history file and its backups.
type Manager struct {
	statePath string
	state     *State
	StateDir  string
}

// findGitRoot finds the root of the git repository.
func findGitRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// New creates and loads a state manager rooted at the git repository root,
// falling back to the current working directory.
func New() (*Manager, error) {
	rootDir, err := findGitRoot()
	if err != nil {
		rootDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
	}
	return newAt(rootDir)
}

func newAt(rootDir string) (*Manager, error) {
	stateDir := filepath.Join(rootDir, stateDirName)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create state directory: %w", err)
	}
	m := &Manager{
		statePath: filepath.Join(stateDir, stateFileName),
		StateDir:  stateDir,
	}
	if err := m.load(); err != nil {
		// A corrupt history file should not block patching; start fresh.
		m.state = &State{CurrentIndex: -1, History: []HistoryEntry{}}
	}
	return m, nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.state = &State{CurrentIndex: -1, History: []HistoryEntry{}}
			return nil
		}
		return err
	}

	state := &State{CurrentIndex: -1}
	if err := yaml.Unmarshal(data, state); err != nil {
		return fmt.Errorf("invalid history file: %w", err)
	}
	if state.CurrentIndex < -1 || state.CurrentIndex >= len(state.History) {
		return fmt.Errorf("invalid history file: index out of range")
	}
	m.state = state
	return nil
}

func (m *Manager) save() error {
	data, err := yaml.Marshal(m.state)
	if err != nil {
		return fmt.Errorf("could not encode history: %w", err)
	}
	if err := os.WriteFile(m.statePath, data, 0644); err != nil {
		return fmt.Errorf("could not write history file: %w", err)
	}
	return nil
}

// Write records a new history entry, storing pre and post images of every
// changed file. Any redo tail beyond the current index is discarded.
func (m *Manager) Write(changes []Change) error {
	if len(changes) == 0 {
		return nil
	}

	if m.state.CurrentIndex < len(m.state.History)-1 {
		m.truncateRedoTail()
	}

	backupName := strconv.FormatInt(time.Now().UTC().UnixNano(), 10)
	backupDir := filepath.Join(m.StateDir, backupsDirName, backupName)
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return fmt.Errorf("could not create backup directory: %w", err)
	}

	ops := make([]Operation, 0, len(changes))
	for i, c := range changes {
		preName := fmt.Sprintf("%d.pre", i)
		postName := fmt.Sprintf("%d.post", i)
		if err := os.WriteFile(filepath.Join(backupDir, preName), []byte(c.PreContent), 0644); err != nil {
			return fmt.Errorf("could not write backup for %s: %w", c.Path, err)
		}
		if err := os.WriteFile(filepath.Join(backupDir, postName), []byte(c.PostContent), 0644); err != nil {
			return fmt.Errorf("could not write backup for %s: %w", c.Path, err)
		}
		ops = append(ops, Operation{
			Path:      c.Path,
			PreHash:   fs.ContentSHA256(c.PreContent),
			PostHash:  fs.ContentSHA256(c.PostContent),
			PreImage:  filepath.Join(backupsDirName, backupName, preName),
			PostImage: filepath.Join(backupsDirName, backupName, postName),
		})
	}
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].Path < ops[j].Path
	})

	m.state.History = append(m.state.History, HistoryEntry{
		Timestamp:  time.Now().UTC().Unix(),
		Backup:     backupName,
		Operations: ops,
	})
	m.state.CurrentIndex++
	return m.save()
}

// truncateRedoTail drops undone entries and removes their backups.
func (m *Manager) truncateRedoTail() {
	for _, entry := range m.state.History[m.state.CurrentIndex+1:] {
		if entry.Backup != "" {
			os.RemoveAll(filepath.Join(m.StateDir, backupsDirName, entry.Backup))
		}
	}
	m.state.History = m.state.History[:m.state.CurrentIndex+1]
}

// GetOperationsToUndo gets the last operations and moves the history pointer.
func (m *Manager) GetOperationsToUndo() ([]Operation, error) {
	if m.state.CurrentIndex < 0 {
		return nil, nil
	}
	ops := m.state.History[m.state.CurrentIndex].Operations
	m.state.CurrentIndex--
	if err := m.save(); err != nil {
		return nil, err
	}
	return ops, nil
}

// GetOperationsToRedo gets the next operations and moves the history pointer.
func (m *Manager) GetOperationsToRedo() ([]Operation, error) {
	nextIndex := m.state.CurrentIndex + 1
	if nextIndex >= len(m.state.History) {
		return nil, nil
	}
	m.state.CurrentIndex = nextIndex
	ops := m.state.History[m.state.CurrentIndex].Operations
	if err := m.save(); err != nil {
		return nil, err
	}
	return ops, nil
}
