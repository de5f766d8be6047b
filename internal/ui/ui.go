package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kanadgupta/tigerfix/model"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("229"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// quiet drops everything below warnings. All output goes to stderr so
// stdout stays clean for report and diff output.
var quiet bool

// SetQuiet suppresses informational output.
func SetQuiet(q bool) {
	quiet = q
}

func Header(format string, a ...interface{}) {
	if quiet {
		return
	}
	fmt.Fprintln(os.Stderr, headerStyle.Render(fmt.Sprintf(format, a...)))
}

func Info(format string, a ...interface{}) {
	if quiet {
		return
	}
	fmt.Fprintln(os.Stderr, infoStyle.Render(fmt.Sprintf(format, a...)))
}

func Success(format string, a ...interface{}) {
	if quiet {
		return
	}
	fmt.Fprintln(os.Stderr, successStyle.Render(fmt.Sprintf(format, a...)))
}

func Warning(format string, a ...interface{}) {
	fmt.Fprintln(os.Stderr, warningStyle.Render(fmt.Sprintf(format, a...)))
}

func Error(format string, a ...interface{}) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf(format, a...)))
}

func Path(format string, a ...interface{}) {
	if quiet {
		return
	}
	fmt.Fprintln(os.Stderr, pathStyle.Render("  "+fmt.Sprintf(format, a...)))
}

// --- Summaries ---

// PrintSummary renders an operation summary for runs without the TUI.
func PrintSummary(s model.Summary) {
	if s.Empty() {
		return
	}

	if s.Message != "" {
		Header("\n%s", s.Message)
	}
	if len(s.Modified) > 0 {
		Success("Modified %d file(s):", len(s.Modified))
		for _, f := range s.Modified {
			Path("- %s", f)
		}
	}
	if len(s.Unchanged) > 0 {
		Info("Unchanged (no matching lines) %d file(s):", len(s.Unchanged))
		for _, f := range s.Unchanged {
			Path("- %s", f)
		}
	}
	if len(s.Failed) > 0 {
		Error("Failed to patch %d file(s):", len(s.Failed))
		for _, f := range s.Failed {
			Path("- %s", f)
		}
	}
}

// --- Progress Bar ---

// ProgressBar is a plain single-line progress indicator for runs where the
// animated interface is disabled.
type ProgressBar struct {
	total   int
	prefix  string
	current int
}

func NewProgressBar(total int, prefix string) *ProgressBar {
	return &ProgressBar{total: total, prefix: prefix}
}

func (p *ProgressBar) Start() {
	p.draw()
}

// Set moves the bar to an absolute position.
func (p *ProgressBar) Set(current int) {
	p.current = current
	p.draw()
}

func (p *ProgressBar) Finish() {
	if quiet || p.total == 0 {
		return
	}
	fmt.Fprintln(os.Stderr)
}

func (p *ProgressBar) draw() {
	if quiet || p.total == 0 {
		return
	}
	const barLength = 40
	percent := float64(p.current) / float64(p.total)
	filledLength := int(percent * barLength)
	if filledLength > barLength {
		filledLength = barLength
	}
	bar := strings.Repeat("█", filledLength) + strings.Repeat("-", barLength-filledLength)

	percentStr := fmt.Sprintf("%.1f%%", percent*100)
	countStr := faintStyle.Render(fmt.Sprintf("[%d/%d]", p.current, p.total))

	fmt.Fprintf(os.Stderr, "\r%s |%s| %s %s", infoStyle.Render(p.prefix), bar, countStr, percentStr)
}
