// Package treesitter wraps the tree-sitter Python grammar for the
// source-code extractor: classes with their bases and decorators,
// functions and methods, and the import statements that become the
// module graph.
package treesitter

import (
	"fmt"
	"os"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Parser wraps a tree-sitter parser bound to the Python grammar.
// Always call Close() when done; the parser holds CGO-allocated memory.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a Python parser.
func NewParser() (*Parser, error) {
	parser := sitter.NewParser()
	if parser == nil {
		return nil, fmt.Errorf("treesitter: failed to create parser")
	}
	language := sitter.NewLanguage(tree_sitter_python.Language())
	if err := parser.SetLanguage(language); err != nil {
		parser.Close()
		return nil, fmt.Errorf("treesitter: failed to set python grammar: %w", err)
	}
	return &Parser{parser: parser}, nil
}

// Close releases the underlying CGO resources.
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}

// ParseFile parses one Python file and extracts its entities. Errors
// are carried in the result, never raised, so a bad file reduces the
// stream instead of aborting the walk.
func (p *Parser) ParseFile(filePath string) FileResult {
	code, err := os.ReadFile(filePath)
	if err != nil {
		return FileResult{FilePath: filePath, Err: fmt.Errorf("read %s: %w", filePath, err)}
	}

	tree := p.parser.Parse(code, nil)
	if tree == nil {
		return FileResult{FilePath: filePath, Err: fmt.Errorf("parse %s: no tree produced", filePath)}
	}
	defer tree.Close()

	entities := extractEntities(tree.RootNode(), code)
	return FileResult{FilePath: filePath, Entities: entities}
}

// nodeText extracts a node's source text via byte offsets.
func nodeText(node *sitter.Node, code []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if int(end) > len(code) {
		end = uint(len(code))
	}
	return string(code[start:end])
}

// enclosingClassName walks up to the nearest class definition.
func enclosingClassName(node *sitter.Node, code []byte) string {
	current := node.Parent()
	for current != nil {
		if current.Kind() == "class_definition" {
			if nameNode := current.ChildByFieldName("name"); nameNode != nil {
				return nodeText(nameNode, code)
			}
		}
		current = current.Parent()
	}
	return ""
}
