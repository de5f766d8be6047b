package script

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kanadgupta/tigerfix/model"
)

// Parse reads a patch script and returns the declared file patches in
// declaration order. The script is a YAML document; when the source is
// Markdown, fenced code blocks tagged yaml, yml or patch are parsed and
// everything else is ignored.
//
// Format:
//
//	patches:
//	  - file: 25017.csv
//	    edits:
//	      - delete-line: "45;1;all;Woodfall Rd;Middlesex;MA;02478"
//	      - replace:
//	          old: "88914"
//	          new: "89141"
func Parse(content string) ([]model.FilePatch, error) {
	docs, err := extractDocuments(content)
	if err != nil {
		return nil, fmt.Errorf("failed to scan source for script blocks: %w", err)
	}

	var patches []model.FilePatch
	for _, doc := range docs {
		parsed, err := parseDocument(doc)
		if err != nil {
			return nil, err
		}
		patches = append(patches, parsed...)
	}
	return patches, nil
}

// document mirrors the YAML layout of a patch script.
type document struct {
	Patches []fileEntry `yaml:"patches"`
}

type fileEntry struct {
	File  string     `yaml:"file"`
	Edits []editNode `yaml:"edits"`
}

// editNode decodes the single-key mapping form of an edit.
type editNode struct {
	edit model.Edit
}

func (e *editNode) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode || len(value.Content) != 2 {
		return fmt.Errorf("line %d: an edit must declare exactly one operation", value.Line)
	}

	key := value.Content[0].Value
	val := value.Content[1]

	switch key {
	case string(model.DeleteLine):
		var exact string
		if err := val.Decode(&exact); err != nil {
			return fmt.Errorf("line %d: delete-line takes the exact line text: %w", val.Line, err)
		}
		e.edit = model.Edit{Kind: model.DeleteLine, Exact: exact}
	case string(model.ReplaceSubstring):
		var sub struct {
			Old string `yaml:"old"`
			New string `yaml:"new"`
		}
		if err := val.Decode(&sub); err != nil {
			return fmt.Errorf("line %d: replace takes old and new substrings: %w", val.Line, err)
		}
		e.edit = model.Edit{Kind: model.ReplaceSubstring, Old: sub.Old, New: sub.New}
	default:
		return fmt.Errorf("line %d: unknown edit operation %q", value.Line, key)
	}
	return nil
}

func parseDocument(doc string) ([]model.FilePatch, error) {
	var d document
	if err := yaml.Unmarshal([]byte(doc), &d); err != nil {
		return nil, fmt.Errorf("invalid patch script: %w", err)
	}

	patches := make([]model.FilePatch, 0, len(d.Patches))
	for _, entry := range d.Patches {
		edits := make([]model.Edit, 0, len(entry.Edits))
		for _, n := range entry.Edits {
			edits = append(edits, n.edit)
		}
		patches = append(patches, model.FilePatch{File: entry.File, Edits: edits})
	}
	return patches, nil
}
