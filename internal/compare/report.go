package compare

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"
)

var (
	deletedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	insertedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
)

// WriteReport prints a directory comparison in the format used for TIGER
// export reviews: set differences first, then per-file counts, then the
// aggregate summary block.
func WriteReport(w io.Writer, r *DirResult, showPairs bool) {
	for _, name := range r.MissingInNew {
		fmt.Fprintf(w, "Missing in new directory: %s\n", name)
	}
	for _, name := range r.ExtraInNew {
		fmt.Fprintf(w, "Extra file in new directory: %s\n", name)
	}

	for _, report := range r.Reports {
		if report.Err != nil {
			fmt.Fprintf(w, "%s: comparison failed: %v\n", report.Name, report.Err)
			continue
		}
		s := report.Stats
		fmt.Fprintf(w, "%s: added %d (%.2f%%), deleted %d (%.2f%%), changed %d (%.2f%%)\n",
			report.Name,
			s.Added, s.Percentage(s.Added),
			s.Deleted, s.Percentage(s.Deleted),
			s.Changed, s.Percentage(s.Changed))
		if showPairs {
			writePairs(w, s.Pairs)
		}
	}

	totals := r.Totals
	fmt.Fprintf(w, "\nSummary:\n")
	fmt.Fprintf(w, "  Total files (old): %d\n", r.TotalFiles)
	fmt.Fprintf(w, "  Compared files: %d\n", r.ComparedFiles)
	fmt.Fprintf(w, "  Missing in new: %d\n", len(r.MissingInNew))
	fmt.Fprintf(w, "  Extra in new: %d\n", len(r.ExtraInNew))
	fmt.Fprintf(w, "  Total lines (old): %d\n", totals.OldLines)
	fmt.Fprintf(w, "  Total lines (new): %d\n", totals.NewLines)
	fmt.Fprintf(w, "  Added lines: %d (%.2f%%)\n", totals.Added, totals.Percentage(totals.Added))
	fmt.Fprintf(w, "  Deleted lines: %d (%.2f%%)\n", totals.Deleted, totals.Percentage(totals.Deleted))
	fmt.Fprintf(w, "  Changed lines: %d (%.2f%%)\n", totals.Changed, totals.Percentage(totals.Changed))
}

// writePairs renders changed line pairs with the differing spans
// highlighted, one removed/added couple per pair.
func writePairs(w io.Writer, pairs []ChangedPair) {
	dmp := diffmatchpatch.New()
	for _, pair := range pairs {
		diffs := dmp.DiffMain(pair.Old, pair.New, false)
		diffs = dmp.DiffCleanupSemantic(diffs)
		fmt.Fprintf(w, "    - %s\n", renderSide(diffs, diffmatchpatch.DiffDelete, deletedStyle))
		fmt.Fprintf(w, "    + %s\n", renderSide(diffs, diffmatchpatch.DiffInsert, insertedStyle))
	}
}

// renderSide rebuilds one side of an intra-line diff, styling the spans
// unique to that side.
func renderSide(diffs []diffmatchpatch.Diff, keep diffmatchpatch.Operation, style lipgloss.Style) string {
	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			b.WriteString(d.Text)
		case keep:
			b.WriteString(style.Render(d.Text))
		}
	}
	return b.String()
}

// UnifiedDiff renders a unified diff between two versions of one file,
// used for dry-run previews.
func UnifiedDiff(name, oldContent, newContent string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldContent),
		B:        difflib.SplitLines(newContent),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}
