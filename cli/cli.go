package cli

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Mode selects which operation the application runs.
type Mode string

const (
	ModeDeleteLine Mode = "delete-line"
	ModeReplace    Mode = "replace"
	ModeApply      Mode = "apply"
	ModeCompare    Mode = "compare"
	ModeUndo       Mode = "undo"
	ModeRedo       Mode = "redo"
)

// Config holds all the command-line flag values.
type Config struct {
	Mode Mode

	// Single-edit flags.
	File  string
	Exact string
	Old   string
	New   string

	// Apply flags.
	Script string
	DryRun bool

	// Compare arguments and flags.
	OldDir      string
	NewDir      string
	MaxFiles    int
	ShowChanges bool

	// Shared flags.
	LookupDirs  []string
	NoAnimation bool
	Quiet       bool
}

// NewConfig returns a Config with defaults applied. MaxFiles starts
// negative, meaning no limit.
func NewConfig() *Config {
	return &Config{MaxFiles: -1}
}

// RegisterCommon binds the flags every command shares.
func (c *Config) RegisterCommon(flags *pflag.FlagSet) {
	flags.StringSliceVarP(&c.LookupDirs, "dir", "d", nil, "Directories to resolve patch targets against (defaults to the working directory).")
	flags.BoolVar(&c.NoAnimation, "no-animation", false, "Disable the loading spinner and progress display.")
	flags.BoolVarP(&c.Quiet, "quiet", "q", false, "Suppress informational output.")
}

// Validate checks that the values required by the selected mode are present.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeDeleteLine:
		if c.File == "" {
			return fmt.Errorf("delete-line requires --file")
		}
	case ModeReplace:
		if c.File == "" {
			return fmt.Errorf("replace requires --file")
		}
		if c.Old == "" {
			return fmt.Errorf("replace requires a non-empty --old")
		}
	case ModeCompare:
		if c.OldDir == "" || c.NewDir == "" {
			return fmt.Errorf("compare requires an old and a new directory")
		}
	case ModeApply, ModeUndo, ModeRedo:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	return nil
}
