package script

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// scriptLangs are the fence tags whose content is treated as patch script.
var scriptLangs = map[string]bool{
	"yaml":  true,
	"yml":   true,
	"patch": true,
}

// codeBlock is a fenced code block lifted out of a markdown document.
type codeBlock struct {
	Lang    string
	Content string
}

// extractDocuments returns the script documents found in content. A source
// without fenced code blocks is treated as one raw YAML document; a source
// with fences contributes only the blocks tagged as script content, so fix
// instructions can travel inside prose such as review notes.
func extractDocuments(content string) ([]string, error) {
	blocks, err := extractCodeBlocks([]byte(content))
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return []string{content}, nil
	}

	var docs []string
	for _, block := range blocks {
		if scriptLangs[strings.ToLower(block.Lang)] {
			docs = append(docs, block.Content)
		}
	}
	return docs, nil
}

// extractCodeBlocks uses a markdown AST to find all fenced code blocks.
func extractCodeBlocks(source []byte) ([]codeBlock, error) {
	var blocks []codeBlock
	parser := goldmark.DefaultParser()
	root := parser.Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		fencedCodeBlock, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var block codeBlock
		if fencedCodeBlock.Info != nil {
			block.Lang = string(fencedCodeBlock.Info.Text(source))
		}

		var content bytes.Buffer
		lines := fencedCodeBlock.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			content.Write(line.Value(source))
		}
		block.Content = content.String()

		blocks = append(blocks, block)
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}

	return blocks, nil
}
