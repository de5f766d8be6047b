package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kanadgupta/tigerfix/cli"
	"github.com/kanadgupta/tigerfix/internal/tui"
	"github.com/kanadgupta/tigerfix/internal/ui"
	"github.com/kanadgupta/tigerfix/tigerfix"
)

var (
	cfg = cli.NewConfig()

	// exitCode carries partial-failure status out of RunE handlers.
	exitCode int
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "tigerfix",
	Short: "tigerfix - line-oriented patching for TIGER address data",
	Long: `tigerfix applies literal line edits to text files such as TIGER
address-range CSV exports.

Two edit kinds are supported: delete-line removes every line that equals
an exact string, and replace substitutes a literal substring on every
line that contains it. Edits never interpret their arguments as patterns,
and a file whose content does not match is left untouched.

Batches of edits are declared in a YAML patch script and applied with
"tigerfix apply". Every write goes through a temporary file and rename,
and is recorded so it can be reverted with "tigerfix undo".`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// deleteLineCmd removes whole lines matching an exact string.
var deleteLineCmd = &cobra.Command{
	Use:   "delete-line",
	Short: "Delete every line equal to an exact string",
	Long: `Removes every line of the target file whose content is exactly the
given string. The comparison covers the whole line, without the line
terminator. If no line matches, the file is left untouched.

Example:
  tigerfix delete-line --file ranges.csv --exact "45;1;all;Woodfall Rd;Middlesex;MA;02478"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cli.ModeDeleteLine)
	},
}

// replaceCmd substitutes a literal substring on every line.
var replaceCmd = &cobra.Command{
	Use:   "replace",
	Short: "Replace a literal substring on every line that contains it",
	Long: `Replaces every occurrence of a literal substring with another, on
every line of the target file. The old string is matched verbatim, never
as a pattern. If no line contains it, the file is left untouched.

Example:
  tigerfix replace --file ranges.csv --old "88914" --new "89141"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cli.ModeReplace)
	},
}

// applyCmd runs a patch script against many files.
var applyCmd = &cobra.Command{
	Use:   "apply [script]",
	Short: "Apply a YAML patch script",
	Long: `Reads a patch script and applies its edits file by file. The script
is taken from the given path, from stdin when piped, or from the
clipboard. Markdown input is supported: only fenced yaml, yml or patch
code blocks are read.

Files that fail to patch are reported and skipped; the remaining files
are still processed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			cfg.Script = args[0]
		}
		return run(cli.ModeApply)
	},
}

// compareCmd diffs two directories of CSV exports.
var compareCmd = &cobra.Command{
	Use:   "compare <old-dir> <new-dir>",
	Short: "Compare the CSV files of two directories",
	Long: `Compares every .csv file present in both directories and reports
added, deleted and changed line counts per file, plus files missing from
or extra in the new directory.

Example:
  tigerfix compare export-2019 export-2020 --max-files 100 --changes`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.OldDir = args[0]
		cfg.NewDir = args[1]
		if cmd.Flags().Changed("max-files") && cfg.MaxFiles < 0 {
			return fmt.Errorf("--max-files must be a non-negative integer")
		}
		return run(cli.ModeCompare)
	},
}

// undoCmd reverts the most recent patch operation.
var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Revert the last patch operation",
	Long: `Restores every file touched by the most recent recorded operation to
its previous content. A file that was modified outside tigerfix since
then is reported and left alone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cli.ModeUndo)
	},
}

// redoCmd re-applies the most recently undone operation.
var redoCmd = &cobra.Command{
	Use:   "redo",
	Short: "Re-apply the last undone operation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cli.ModeRedo)
	},
}

func init() {
	cfg.RegisterCommon(rootCmd.PersistentFlags())

	deleteLineCmd.Flags().StringVarP(&cfg.File, "file", "f", "", "Target file to patch (required)")
	deleteLineCmd.Flags().StringVarP(&cfg.Exact, "exact", "e", "", "Exact line content to delete (required)")
	deleteLineCmd.MarkFlagRequired("file")
	deleteLineCmd.MarkFlagRequired("exact")

	replaceCmd.Flags().StringVarP(&cfg.File, "file", "f", "", "Target file to patch (required)")
	replaceCmd.Flags().StringVar(&cfg.Old, "old", "", "Literal substring to replace (required)")
	replaceCmd.Flags().StringVar(&cfg.New, "new", "", "Replacement text (required, may be empty)")
	replaceCmd.MarkFlagRequired("file")
	replaceCmd.MarkFlagRequired("old")
	replaceCmd.MarkFlagRequired("new")

	applyCmd.Flags().BoolVar(&cfg.DryRun, "dry-run", false, "Print unified diffs instead of writing files")

	compareCmd.Flags().IntVar(&cfg.MaxFiles, "max-files", -1, "Compare at most this many shared files")
	compareCmd.Flags().BoolVar(&cfg.ShowChanges, "changes", false, "Show changed line pairs with highlighted differences")

	rootCmd.AddCommand(deleteLineCmd)
	rootCmd.AddCommand(replaceCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(redoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		ui.Error("Error: %v", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

func run(mode cli.Mode) error {
	cfg.Mode = mode
	if err := cfg.Validate(); err != nil {
		return err
	}
	ui.SetQuiet(cfg.Quiet)

	app, err := tigerfix.New(cfg)
	if err != nil {
		return err
	}

	if wantsTUI() {
		return runTUI(app)
	}
	switch {
	case batchMode():
		attachProgressBar(app, "Patching")
	case cfg.Mode == cli.ModeCompare:
		attachProgressBar(app, "Comparing")
	}

	summary, err := app.Execute()
	if err != nil {
		var detailed *tigerfix.DetailedError
		if errors.As(err, &detailed) {
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", detailed.Stack)
		}
		return err
	}
	ui.PrintSummary(summary)
	if len(summary.Failed) > 0 {
		exitCode = 1
	}
	return nil
}

// batchMode reports whether the selected mode patches a batch of files.
// Compare also walks many files but owns stdout with its report, so it
// never hosts the animated interface.
func batchMode() bool {
	switch cfg.Mode {
	case cli.ModeApply, cli.ModeUndo, cli.ModeRedo:
		return true
	}
	return false
}

// wantsTUI reports whether the animated progress display should run. Dry
// runs and compare print to stdout and bypass it so their output stays
// clean.
func wantsTUI() bool {
	if !batchMode() || cfg.DryRun || cfg.NoAnimation {
		return false
	}
	return isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// attachProgressBar wires a plain single-line progress display for runs
// without the animated interface. The bar draws on stderr, so compare's
// report stays pipeable.
func attachProgressBar(app *tigerfix.App, label string) {
	var bar *ui.ProgressBar
	app.SetProgressCallback(func(current, total int) {
		if bar == nil {
			bar = ui.NewProgressBar(total, label)
			bar.Start()
		}
		bar.Set(current)
		if current == total {
			bar.Finish()
		}
	})
}

func runTUI(app *tigerfix.App) error {
	model := tui.New(app)
	p := tea.NewProgram(model)
	model.SetProgram(p)
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	if m, ok := final.(tui.Model); ok && m.FailureCount() > 0 {
		exitCode = 1
	}
	return nil
}
