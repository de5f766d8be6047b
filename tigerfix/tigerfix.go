package tigerfix

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/kanadgupta/tigerfix/cli"
	"github.com/kanadgupta/tigerfix/internal/compare"
	"github.com/kanadgupta/tigerfix/internal/fs"
	"github.com/kanadgupta/tigerfix/internal/patch"
	"github.com/kanadgupta/tigerfix/internal/script"
	"github.com/kanadgupta/tigerfix/internal/source"
	"github.com/kanadgupta/tigerfix/internal/state"
	"github.com/kanadgupta/tigerfix/internal/ui"
	"github.com/kanadgupta/tigerfix/model"
)

// ProgressUpdate is a callback function to report progress.
type ProgressUpdate func(current, total int)

// App orchestrates the entire application logic.
type App struct {
	cfg              *cli.Config
	stateManager     *state.Manager
	pathResolver     *fs.PathResolver
	sourceProvider   *source.SourceProvider
	progressCallback ProgressUpdate
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

// New creates a new App instance.
func New(cfg *cli.Config) (*App, error) {
	return &App{
		cfg:            cfg,
		pathResolver:   fs.NewPathResolver(cfg.LookupDirs),
		sourceProvider: source.New(),
	}, nil
}

// SetProgressCallback sets a function to be called for progress updates.
func (a *App) SetProgressCallback(cb ProgressUpdate) {
	a.progressCallback = cb
}

// stateMgr initializes the history manager on first use, so read-only
// modes never create a state directory.
func (a *App) stateMgr() (*state.Manager, error) {
	if a.stateManager == nil {
		mgr, err := state.New()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize state manager: %w", err)
		}
		a.stateManager = mgr
	}
	return a.stateManager, nil
}

// Execute runs the operation selected by the configured mode.
func (a *App) Execute() (summary model.Summary, err error) {
	// Centralized panic recovery.
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	switch a.cfg.Mode {
	case cli.ModeUndo:
		return a.undoLastOperation()
	case cli.ModeRedo:
		return a.redoLastOperation()
	case cli.ModeCompare:
		return a.compareDirectories()
	case cli.ModeApply:
		return a.applyScript()
	default:
		return a.applySingleEdit()
	}
}

// Parse reads a patch script and returns the file patches it declares.
func (a *App) Parse(content string) ([]model.FilePatch, error) {
	patches, err := script.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse patch script: %w", err)
	}
	return patches, nil
}

// Apply applies the given file patches and reports the outcome.
func (a *App) Apply(patches []model.FilePatch) (model.Summary, error) {
	return a.applyPatches(patches, false)
}

// applySingleEdit runs the one edit described by the command-line flags.
func (a *App) applySingleEdit() (model.Summary, error) {
	var edit model.Edit
	switch a.cfg.Mode {
	case cli.ModeDeleteLine:
		edit = model.Edit{Kind: model.DeleteLine, Exact: a.cfg.Exact}
	case cli.ModeReplace:
		edit = model.Edit{Kind: model.ReplaceSubstring, Old: a.cfg.Old, New: a.cfg.New}
	default:
		return model.Summary{}, fmt.Errorf("unknown mode %q", a.cfg.Mode)
	}

	patches := []model.FilePatch{{File: a.cfg.File, Edits: []model.Edit{edit}}}
	return a.applyPatches(patches, true)
}

// applyScript reads a patch script from the configured source and applies
// every patch it declares.
func (a *App) applyScript() (model.Summary, error) {
	content, err := a.sourceProvider.GetContent(a.cfg.Script)
	if err != nil {
		return model.Summary{}, err
	}
	if content == "" {
		return model.Summary{Message: "Source is empty. Nothing to process."}, nil
	}

	patches, err := a.Parse(content)
	if err != nil {
		return model.Summary{}, err
	}
	if len(patches) == 0 {
		return model.Summary{Message: "No patches were declared. Nothing to do."}, nil
	}
	return a.applyPatches(patches, false)
}

// preview carries the before and after content of a dry-run change.
type preview struct {
	path       string
	oldContent string
	newContent string
}

// applyPatches validates and applies each file patch in order. In strict
// mode the first failure aborts the run; otherwise failures are collected
// into the summary and the remaining patches still run.
func (a *App) applyPatches(patches []model.FilePatch, strict bool) (model.Summary, error) {
	for _, p := range patches {
		if err := patch.ValidatePatch(p); err != nil {
			return model.Summary{}, fmt.Errorf("invalid patch for '%s': %w", p.File, err)
		}
	}

	total := len(patches)
	if a.progressCallback != nil {
		a.progressCallback(0, total)
	}

	var (
		modified  []string
		unchanged []string
		failed    []string
		changes   []state.Change
		previews  []preview
	)

	for i, p := range patches {
		outcome, err := a.applyOne(p)
		switch {
		case err == nil && outcome.result.Changed:
			modified = append(modified, outcome.result.Path)
			a.reportEffects(outcome.result)
			if a.cfg.DryRun {
				previews = append(previews, preview{
					path:       outcome.result.Path,
					oldContent: outcome.oldContent,
					newContent: outcome.newContent,
				})
			} else {
				changes = append(changes, state.Change{
					Path:        outcome.result.Path,
					PreContent:  outcome.oldContent,
					PostContent: outcome.newContent,
				})
			}
		case err == nil:
			unchanged = append(unchanged, outcome.result.Path)
		case strict:
			return model.Summary{}, err
		default:
			ui.Warning("Skipping '%s': %v", p.File, err)
			failed = append(failed, p.File)
		}

		if a.progressCallback != nil {
			a.progressCallback(i+1, total)
		}
	}

	summary := model.Summary{
		Modified:  modified,
		Unchanged: unchanged,
		Failed:    failed,
	}

	if a.cfg.DryRun {
		a.printPreviews(previews)
		summary.Message = "Dry run: no files were written."
		a.relativizeSummaryPaths(&summary)
		return summary, nil
	}

	if len(changes) > 0 {
		if mgr, err := a.stateMgr(); err != nil {
			ui.Warning("History unavailable: %v", err)
		} else if err := mgr.Write(changes); err != nil {
			ui.Warning("Failed to record history: %v", err)
		}
	}

	a.relativizeSummaryPaths(&summary)
	return summary, nil
}

// fileOutcome carries the result and the before and after content of one
// patched file.
type fileOutcome struct {
	result     model.FileResult
	oldContent string
	newContent string
}

// applyOne resolves, reads, transforms and (outside dry runs) atomically
// rewrites a single file.
func (a *App) applyOne(p model.FilePatch) (fileOutcome, error) {
	path, err := a.pathResolver.Resolve(p.File)
	if err != nil {
		return fileOutcome{}, err
	}

	content, err := fs.ReadFile(path)
	if err != nil {
		return fileOutcome{}, err
	}

	newContent, results := patch.Apply(content, p.Edits)
	outcome := fileOutcome{
		result: model.FileResult{
			Path:    path,
			Changed: newContent != content,
			Results: results,
		},
		oldContent: content,
		newContent: newContent,
	}

	if outcome.result.Changed && !a.cfg.DryRun {
		if err := fs.WriteFileAtomic(path, newContent); err != nil {
			return fileOutcome{}, err
		}
	}
	return outcome, nil
}

// reportEffects prints what each effective edit did to a modified file.
func (a *App) reportEffects(r model.FileResult) {
	name := a.displayPath(r.Path)
	for _, res := range r.Results {
		switch {
		case res.LinesDeleted > 0:
			ui.Info("%s: deleted %d line(s) equal to %q", name, res.LinesDeleted, res.Edit.Exact)
		case res.Replacements > 0:
			ui.Info("%s: replaced %d occurrence(s) of %q", name, res.Replacements, res.Edit.Old)
		}
	}
}

// printPreviews writes unified diffs of the pending changes to stdout.
func (a *App) printPreviews(previews []preview) {
	for _, p := range previews {
		name := a.displayPath(p.path)
		diff, err := compare.UnifiedDiff(name, p.oldContent, p.newContent)
		if err != nil {
			ui.Warning("Could not render diff for '%s': %v", name, err)
			continue
		}
		fmt.Print(diff)
	}
}

// compareDirectories prints a comparison report for two export directories.
// Progress goes through the callback so the report keeps stdout to itself.
func (a *App) compareDirectories() (model.Summary, error) {
	result, err := compare.Dirs(a.cfg.OldDir, a.cfg.NewDir, compare.Options{
		MaxFiles:  a.cfg.MaxFiles,
		WithPairs: a.cfg.ShowChanges,
		Progress:  a.progressCallback,
	})
	if err != nil {
		return model.Summary{}, err
	}
	compare.WriteReport(os.Stdout, result, a.cfg.ShowChanges)
	return model.Summary{}, nil
}

// undoLastOperation handles the undo logic.
func (a *App) undoLastOperation() (model.Summary, error) {
	mgr, err := a.stateMgr()
	if err != nil {
		return model.Summary{}, err
	}
	ops, err := mgr.GetOperationsToUndo()
	if err != nil {
		return model.Summary{}, err
	}
	if len(ops) == 0 {
		return model.Summary{Message: "No operation to undo."}, nil
	}

	undone, failed := mgr.UndoFiles(ops, a.stepProgress(len(ops)))

	summary := model.Summary{
		Modified: undone,
		Failed:   failed,
		Message:  "Undid last operation.",
	}
	a.relativizeSummaryPaths(&summary)
	return summary, nil
}

// redoLastOperation handles the redo logic.
func (a *App) redoLastOperation() (model.Summary, error) {
	mgr, err := a.stateMgr()
	if err != nil {
		return model.Summary{}, err
	}
	ops, err := mgr.GetOperationsToRedo()
	if err != nil {
		return model.Summary{}, err
	}
	if len(ops) == 0 {
		return model.Summary{Message: "No operation to redo."}, nil
	}

	redone, failed := mgr.RedoFiles(ops, a.stepProgress(len(ops)))

	summary := model.Summary{
		Modified: redone,
		Failed:   failed,
		Message:  "Redid last undone operation.",
	}
	a.relativizeSummaryPaths(&summary)
	return summary, nil
}

// stepProgress adapts the two-argument progress callback to the
// one-argument form the restore executor reports with.
func (a *App) stepProgress(total int) func(int) {
	if a.progressCallback == nil {
		return nil
	}
	a.progressCallback(0, total)
	return func(current int) {
		a.progressCallback(current, total)
	}
}

// displayPath makes a path relative to the working directory for display.
func (a *App) displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil {
		return path
	}
	return rel
}

// relativizeSummaryPaths converts absolute file paths in a summary to be
// relative to the current working directory for cleaner display.
func (a *App) relativizeSummaryPaths(summary *model.Summary) {
	wd, err := os.Getwd()
	if err != nil {
		// Cannot get CWD, so we can't make paths relative.
		return
	}

	makeRelative := func(absPaths []string) []string {
		relPaths := make([]string, len(absPaths))
		for i, p := range absPaths {
			rel, err := filepath.Rel(wd, p)
			if err != nil {
				relPaths[i] = p // Fallback to the original path.
			} else {
				relPaths[i] = rel
			}
		}
		return relPaths
	}

	summary.Modified = makeRelative(summary.Modified)
	summary.Unchanged = makeRelative(summary.Unchanged)
	summary.Failed = makeRelative(summary.Failed)
}
