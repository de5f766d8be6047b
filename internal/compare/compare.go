package compare

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/kanadgupta/tigerfix/internal/fs"
)

// FileStats holds the line difference counts for one compared file pair.
type FileStats struct {
	Added    int
	Deleted  int
	Changed  int
	OldLines int
	NewLines int
	Pairs    []ChangedPair
}

// ChangedPair is one old/new line pairing inside a changed region.
type ChangedPair struct {
	Old string
	New string
}

// Percentage returns count as a share of the old line total, falling back
// to the new total for files that started empty.
func (s FileStats) Percentage(count int) float64 {
	base := s.OldLines
	if base == 0 {
		base = s.NewLines
	}
	if base == 0 {
		return 0
	}
	return float64(count) * 100 / float64(base)
}

// Content compares two file contents line by line.
func Content(oldContent, newContent string, withPairs bool) FileStats {
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)

	stats := FileStats{OldLines: len(oldLines), NewLines: len(newLines)}

	matcher := difflib.NewMatcher(oldLines, newLines)
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'd':
			stats.Deleted += op.I2 - op.I1
		case 'i':
			stats.Added += op.J2 - op.J1
		case 'r':
			// A replace region pairs lines off one to one; the surplus on
			// either side counts as deleted or added.
			del := op.I2 - op.I1
			ins := op.J2 - op.J1
			paired := min(del, ins)
			stats.Changed += paired
			stats.Deleted += del - paired
			stats.Added += ins - paired
			if withPairs {
				for k := 0; k < paired; k++ {
					stats.Pairs = append(stats.Pairs, ChangedPair{
						Old: oldLines[op.I1+k],
						New: newLines[op.J1+k],
					})
				}
			}
		}
	}
	return stats
}

// Options controls a directory comparison.
type Options struct {
	// MaxFiles limits comparison to the first N names after sorting.
	// Negative means no limit.
	MaxFiles int
	// WithPairs collects the changed line pairs for detailed reporting.
	WithPairs bool
	// Workers caps the comparison fan-out. Zero means one per CPU.
	Workers int
	// Progress, when set, receives the completion count and the total as
	// file pairs finish.
	Progress func(done, total int)
}

// FileReport ties the stats for one compared file to its name.
type FileReport struct {
	Name  string
	Stats FileStats
	Err   error
}

// DirResult aggregates a full directory comparison.
type DirResult struct {
	MissingInNew  []string
	ExtraInNew    []string
	Reports       []FileReport
	Totals        FileStats
	TotalFiles    int
	ComparedFiles int
}

// Dirs compares the CSV files present in two directories and reports the
// per-file and aggregate line differences.
func Dirs(oldDir, newDir string, opts Options) (*DirResult, error) {
	oldFiles, err := listCSVFiles(oldDir)
	if err != nil {
		return nil, err
	}
	newFiles, err := listCSVFiles(newDir)
	if err != nil {
		return nil, err
	}

	result := &DirResult{TotalFiles: len(oldFiles)}

	var shared []string
	for name := range oldFiles {
		if _, ok := newFiles[name]; ok {
			shared = append(shared, name)
		} else {
			result.MissingInNew = append(result.MissingInNew, name)
		}
	}
	for name := range newFiles {
		if _, ok := oldFiles[name]; !ok {
			result.ExtraInNew = append(result.ExtraInNew, name)
		}
	}
	sort.Strings(result.MissingInNew)
	sort.Strings(result.ExtraInNew)
	sort.Strings(shared)

	if opts.MaxFiles >= 0 && len(shared) > opts.MaxFiles {
		shared = shared[:opts.MaxFiles]
	}
	result.ComparedFiles = len(shared)

	result.Reports = compareAll(shared, oldFiles, newFiles, opts)

	for _, report := range result.Reports {
		if report.Err != nil {
			continue
		}
		result.Totals.Added += report.Stats.Added
		result.Totals.Deleted += report.Stats.Deleted
		result.Totals.Changed += report.Stats.Changed
		result.Totals.OldLines += report.Stats.OldLines
		result.Totals.NewLines += report.Stats.NewLines
	}
	return result, nil
}

// compareAll fans the per-file comparisons out across a bounded worker
// pool. Each goroutine writes into its own slot, so the sorted report
// order is preserved without locking.
func compareAll(names []string, oldFiles, newFiles map[string]string, opts Options) []FileReport {
	if len(names) == 0 {
		return nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	reports := make([]FileReport, len(names))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	// The completion counter is shared across workers; the lock also keeps
	// the reported counts strictly increasing.
	var mu sync.Mutex
	done := 0
	if opts.Progress != nil {
		opts.Progress(0, len(names))
	}

	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			reports[i] = compareOne(name, oldFiles[name], newFiles[name], opts.WithPairs)
			if opts.Progress != nil {
				mu.Lock()
				done++
				opts.Progress(done, len(names))
				mu.Unlock()
			}
		}(i, name)
	}
	wg.Wait()

	return reports
}

func compareOne(name, oldPath, newPath string, withPairs bool) FileReport {
	oldContent, err := fs.ReadFile(oldPath)
	if err != nil {
		return FileReport{Name: name, Err: err}
	}
	newContent, err := fs.ReadFile(newPath)
	if err != nil {
		return FileReport{Name: name, Err: err}
	}
	return FileReport{Name: name, Stats: Content(oldContent, newContent, withPairs)}
}

// listCSVFiles maps the base name of every .csv file in dir to its path.
func listCSVFiles(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", fs.ErrNotFound, dir)
		}
		return nil, fmt.Errorf("%w: read %s: %v", fs.ErrIO, dir, err)
	}

	files := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) == ".csv" {
			files[name] = filepath.Join(dir, name)
		}
	}
	return files, nil
}

// splitLines breaks content into lines without counting a trailing newline
// as an extra empty line. An empty file has zero lines.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}
