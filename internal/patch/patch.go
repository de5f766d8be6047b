package patch

import (
	"fmt"
	"strings"

	"github.com/kanadgupta/tigerfix/model"
)

// Apply runs edits in declaration order over content and reports the effect
// of each one. Lines are delimited by '\n'; the presence or absence of a
// trailing newline in the input is preserved in the output.
func Apply(content string, edits []model.Edit) (string, []model.EditResult) {
	lines, trailing := splitLines(content)
	results := make([]model.EditResult, 0, len(edits))

	for _, edit := range edits {
		result := model.EditResult{Edit: edit}
		switch edit.Kind {
		case model.DeleteLine:
			lines, result.LinesDeleted = deleteLines(lines, edit.Exact)
		case model.ReplaceSubstring:
			lines, result.Replacements = replaceInLines(lines, edit.Old, edit.New)
		}
		results = append(results, result)
	}

	return joinLines(lines, trailing), results
}

// Validate rejects edits the engine cannot apply meaningfully.
func Validate(edit model.Edit) error {
	switch edit.Kind {
	case model.DeleteLine:
		if strings.Contains(edit.Exact, "\n") {
			return fmt.Errorf("delete-line text must not contain a newline")
		}
	case model.ReplaceSubstring:
		if edit.Old == "" {
			return fmt.Errorf("replace requires a non-empty old substring")
		}
		if strings.Contains(edit.Old, "\n") || strings.Contains(edit.New, "\n") {
			return fmt.Errorf("replace substrings must not contain a newline")
		}
	default:
		return fmt.Errorf("unknown edit kind %q", edit.Kind)
	}
	return nil
}

// ValidatePatch checks a file patch and every edit it declares.
func ValidatePatch(p model.FilePatch) error {
	if p.File == "" {
		return fmt.Errorf("patch is missing a target file")
	}
	if len(p.Edits) == 0 {
		return fmt.Errorf("patch declares no edits")
	}
	for i, edit := range p.Edits {
		if err := Validate(edit); err != nil {
			return fmt.Errorf("edit %d: %w", i+1, err)
		}
	}
	return nil
}

// deleteLines keeps every line that is not byte-equal to exact.
func deleteLines(lines []string, exact string) ([]string, int) {
	kept := lines[:0:0]
	deleted := 0
	for _, line := range lines {
		if line == exact {
			deleted++
			continue
		}
		kept = append(kept, line)
	}
	return kept, deleted
}

// replaceInLines substitutes every non-overlapping occurrence of old with new
// on each line, using literal matching.
func replaceInLines(lines []string, old, new string) ([]string, int) {
	if old == "" {
		return lines, 0
	}
	replaced := 0
	out := make([]string, len(lines))
	for i, line := range lines {
		n := strings.Count(line, old)
		if n > 0 {
			replaced += n
			out[i] = strings.ReplaceAll(line, old, new)
		} else {
			out[i] = line
		}
	}
	return out, replaced
}

// splitLines breaks content into lines and remembers whether the content
// ended with a newline. An empty file has zero lines.
func splitLines(content string) ([]string, bool) {
	if content == "" {
		return nil, false
	}
	trailing := strings.HasSuffix(content, "\n")
	body := strings.TrimSuffix(content, "\n")
	return strings.Split(body, "\n"), trailing
}

// joinLines is the inverse of splitLines. Deleting every line of a file
// yields empty content regardless of the original trailing newline.
func joinLines(lines []string, trailing bool) string {
	if len(lines) == 0 {
		return ""
	}
	joined := strings.Join(lines, "\n")
	if trailing {
		joined += "\n"
	}
	return joined
}
