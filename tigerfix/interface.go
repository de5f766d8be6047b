package tigerfix

import (
	"fmt"

	"github.com/kanadgupta/tigerfix/cli"
	"github.com/kanadgupta/tigerfix/model"
)

// Config for using tigerfix as a library.
type Config struct {
	// LookupDirs are the directories patch targets resolve against.
	LookupDirs []string
	// DryRun previews changes without writing any file.
	DryRun bool
}

// Apply parses the given patch script and applies its edits to files on
// disk. It returns a summary of the operations in a map.
func Apply(content string, config Config) (map[string][]string, error) {
	app, err := newLibraryApp(cli.ModeApply, config)
	if err != nil {
		return nil, err
	}

	patches, err := app.Parse(content)
	if err != nil {
		return nil, err
	}

	summary, err := app.applyPatches(patches, false)
	if err != nil {
		return nil, err
	}

	return summaryMap(summary), nil
}

// DeleteLine removes every line of the file equal to exact.
func DeleteLine(path, exact string, config Config) (map[string][]string, error) {
	app, err := newLibraryApp(cli.ModeDeleteLine, config)
	if err != nil {
		return nil, err
	}

	patches := []model.FilePatch{{
		File:  path,
		Edits: []model.Edit{{Kind: model.DeleteLine, Exact: exact}},
	}}
	summary, err := app.applyPatches(patches, true)
	if err != nil {
		return nil, err
	}
	return summaryMap(summary), nil
}

// ReplaceSubstring replaces every occurrence of old with new on each line
// of the file.
func ReplaceSubstring(path, old, new string, config Config) (map[string][]string, error) {
	app, err := newLibraryApp(cli.ModeReplace, config)
	if err != nil {
		return nil, err
	}

	patches := []model.FilePatch{{
		File:  path,
		Edits: []model.Edit{{Kind: model.ReplaceSubstring, Old: old, New: new}},
	}}
	summary, err := app.applyPatches(patches, true)
	if err != nil {
		return nil, err
	}
	return summaryMap(summary), nil
}

func newLibraryApp(mode cli.Mode, config Config) (*App, error) {
	cliCfg := cli.NewConfig()
	cliCfg.Mode = mode
	cliCfg.LookupDirs = config.LookupDirs
	cliCfg.DryRun = config.DryRun

	app, err := New(cliCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tigerfix app: %w", err)
	}
	return app, nil
}

func summaryMap(summary model.Summary) map[string][]string {
	return map[string][]string{
		"Modified":  summary.Modified,
		"Unchanged": summary.Unchanged,
		"Failed":    summary.Failed,
	}
}
