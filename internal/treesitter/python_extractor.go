package treesitter

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// extractEntities walks the AST collecting classes, functions, and
// imports. Decorated definitions appear under a decorated_definition
// wrapper node, so decorators are resolved from the parent chain.
func extractEntities(root *sitter.Node, code []byte) []PyEntity {
	var entities []PyEntity

	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}

		switch node.Kind() {
		case "function_definition":
			entities = append(entities, functionEntity(node, code, false))
		case "async_function_definition":
			entities = append(entities, functionEntity(node, code, true))
		case "class_definition":
			entities = append(entities, classEntity(node, code))
		case "import_statement":
			entities = append(entities, importEntities(node, code)...)
		case "import_from_statement":
			entities = append(entities, fromImportEntities(node, code)...)
		}

		for i := uint(0); i < node.ChildCount(); i++ {
			walk(node.Child(i))
		}
	}

	walk(root)
	return entities
}

func functionEntity(node *sitter.Node, code []byte, isAsync bool) PyEntity {
	e := PyEntity{
		Type:       "function",
		IsAsync:    isAsync,
		ClassName:  enclosingClassName(node, code),
		Decorators: decoratorsOf(node, code),
		Docstring:  docstringOf(node, code),
		StartLine:  int(node.StartPosition().Row) + 1,
		EndLine:    int(node.EndPosition().Row) + 1,
	}
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		e.Name = nodeText(nameNode, code)
	}
	// The grammar also represents async defs as a function_definition
	// whose first token is "async".
	if !isAsync && node.ChildCount() > 0 && node.Child(0) != nil && node.Child(0).Kind() == "async" {
		e.IsAsync = true
	}
	return e
}

func classEntity(node *sitter.Node, code []byte) PyEntity {
	e := PyEntity{
		Type:       "class",
		Decorators: decoratorsOf(node, code),
		Docstring:  docstringOf(node, code),
		StartLine:  int(node.StartPosition().Row) + 1,
		EndLine:    int(node.EndPosition().Row) + 1,
	}
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		e.Name = nodeText(nameNode, code)
	}
	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		for i := uint(0); i < supers.ChildCount(); i++ {
			child := supers.Child(i)
			switch child.Kind() {
			case "identifier", "attribute":
				e.Bases = append(e.Bases, nodeText(child, code))
			case "keyword_argument":
				// metaclass=ABCMeta counts as a base for abstractness
				if v := child.ChildByFieldName("value"); v != nil {
					e.Bases = append(e.Bases, nodeText(v, code))
				}
			}
		}
	}
	return e
}

// importEntities handles "import a.b, c as d".
func importEntities(node *sitter.Node, code []byte) []PyEntity {
	var out []PyEntity
	line := int(node.StartPosition().Row) + 1
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "dotted_name":
			out = append(out, PyEntity{
				Type: "import", Module: nodeText(child, code),
				Name: nodeText(child, code), StartLine: line, EndLine: line,
			})
		case "aliased_import":
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			out = append(out, PyEntity{
				Type: "import", Module: nodeText(name, code),
				Name: nodeText(name, code), Alias: nodeText(alias, code),
				StartLine: line, EndLine: line,
			})
		}
	}
	return out
}

// fromImportEntities handles "from a.b import c, d as e".
func fromImportEntities(node *sitter.Node, code []byte) []PyEntity {
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode == nil {
		return nil
	}
	module := nodeText(moduleNode, code)
	line := int(node.StartPosition().Row) + 1

	var out []PyEntity
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == moduleNode {
			continue
		}
		switch child.Kind() {
		case "dotted_name", "identifier":
			out = append(out, PyEntity{
				Type: "from_import", Module: module,
				Name: nodeText(child, code), StartLine: line, EndLine: line,
			})
		case "aliased_import":
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			out = append(out, PyEntity{
				Type: "from_import", Module: module,
				Name: nodeText(name, code), Alias: nodeText(alias, code),
				StartLine: line, EndLine: line,
			})
		case "wildcard_import":
			out = append(out, PyEntity{
				Type: "from_import", Module: module, Name: "*",
				StartLine: line, EndLine: line,
			})
		}
	}
	if len(out) == 0 {
		out = append(out, PyEntity{
			Type: "from_import", Module: module, StartLine: line, EndLine: line,
		})
	}
	return out
}

// decoratorsOf reads the decorator list off a decorated_definition
// parent, stripping the leading "@".
func decoratorsOf(node *sitter.Node, code []byte) []string {
	parent := node.Parent()
	if parent == nil || parent.Kind() != "decorated_definition" {
		return nil
	}
	var decorators []string
	for i := uint(0); i < parent.ChildCount(); i++ {
		child := parent.Child(i)
		if child.Kind() == "decorator" {
			text := strings.TrimPrefix(nodeText(child, code), "@")
			decorators = append(decorators, strings.TrimSpace(text))
		}
	}
	return decorators
}

// docstringOf returns the leading string literal of a definition body.
func docstringOf(node *sitter.Node, code []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first == nil || first.Kind() != "expression_statement" || first.ChildCount() == 0 {
		return ""
	}
	expr := first.Child(0)
	if expr == nil || expr.Kind() != "string" {
		return ""
	}
	text := nodeText(expr, code)
	text = strings.Trim(text, "\"'")
	return strings.TrimSpace(text)
}
