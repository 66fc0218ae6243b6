package ansible

import (
	"bufio"
	"os"
	"path"
	"strings"

	"github.com/repograph/gateway/internal/model"
	"github.com/repograph/gateway/internal/parse/jinjaparser"
	"github.com/repograph/gateway/internal/parse/pyparser"
	"github.com/repograph/gateway/internal/parse/rubyparser"
	"github.com/repograph/gateway/internal/parse/yamlparser"
)

type modelRef = model.Ref

// roleRef builds the global (repository-free) Role endpoint.
func roleRef(name string) model.Ref {
	return model.Ref{Kind: "Role", Properties: map[string]any{"name": name}}
}

// varScope classifies where a vars file's definitions apply from its
// directory conventions.
func (b *emitter) varScope() string {
	for _, seg := range strings.Split(path.Dir(b.rel), "/") {
		switch seg {
		case "group_vars":
			return "group"
		case "host_vars":
			return "host"
		case "defaults":
			return "defaults"
		}
	}
	return "vars_file"
}

// extractVarsFile emits the VarsFile node and one Variable per
// top-level key.
func (b *emitter) extractVarsFile() {
	b.entity("VarsFile", map[string]any{
		"repository": b.repository,
		"path":       b.rel,
	})
	varsRef := b.ref("VarsFile", map[string]any{"path": b.rel})
	b.edge("IN_FILE", varsRef, b.fileRef(), nil)

	result := yamlparser.Parse(b.abs())
	if !result.Success {
		for _, err := range result.Errors {
			b.err(err)
		}
		return
	}
	if vars, ok := result.Root.(map[string]any); ok {
		b.emitVarsFrom(vars, b.varScope(), &varsRef)
	}
}

// emitVarsFrom records a Variable per key and a DEFINES_VAR edge from
// the definer when one is given.
func (b *emitter) emitVarsFrom(vars map[string]any, scope string, definer *modelRef) {
	for name := range vars {
		b.emitVariable(name, scope, definer, "DEFINES_VAR")
	}
}

func (b *emitter) emitVariable(name, scope string, definer *modelRef, edgeKind string) {
	b.entity("Variable", map[string]any{
		"repository": b.repository,
		"name":       name,
		"scope":      scope,
		"file_path":  b.rel,
	})
	if definer != nil {
		b.edge(edgeKind, *definer, b.ref("Variable", map[string]any{"name": name}), nil)
	}
}

// extractTaskFile handles roles/<role>/tasks/*.yml: a bare task list
// owned by the file.
func (b *emitter) extractTaskFile() {
	result := yamlparser.Parse(b.abs())
	if !result.Success {
		for _, err := range result.Errors {
			b.err(err)
		}
		return
	}
	tasks, ok := result.Root.([]any)
	if !ok {
		return
	}
	b.extractTaskList(tasks, b.fileRef(), "HAS_TASK")
}

// extractHandlerFile handles roles/<role>/handlers/*.yml.
func (b *emitter) extractHandlerFile() {
	result := yamlparser.Parse(b.abs())
	if !result.Success {
		for _, err := range result.Errors {
			b.err(err)
		}
		return
	}
	for _, item := range listOf(result.Root) {
		if handler, ok := item.(map[string]any); ok {
			b.extractHandler(handler, nil)
		}
	}
}

// extractRoleMeta handles roles/<role>/meta/main.yml: the Role node
// itself plus DEPENDS_ON edges.
func (b *emitter) extractRoleMeta() {
	roleName := roleNameFromPath(b.rel)
	if roleName == "" {
		return
	}
	b.entity("Role", map[string]any{"name": roleName})

	result := yamlparser.Parse(b.abs())
	if !result.Success {
		for _, err := range result.Errors {
			b.err(err)
		}
		return
	}
	meta, ok := result.Root.(map[string]any)
	if !ok {
		return
	}
	for _, dep := range listOf(meta["dependencies"]) {
		depName := ""
		switch v := dep.(type) {
		case string:
			depName = v
		case map[string]any:
			depName, _ = stringOf(v["role"])
			if depName == "" {
				depName, _ = stringOf(v["name"])
			}
		}
		if depName == "" {
			continue
		}
		b.entity("Role", map[string]any{"name": depName})
		b.edge("DEPENDS_ON", roleRef(roleName), roleRef(depName), nil)
	}
}

// roleNameFromPath extracts <role> from roles/<role>/meta/main.yml.
func roleNameFromPath(rel string) string {
	segments := strings.Split(path.Dir(rel), "/")
	for i, seg := range segments {
		if seg == "roles" && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	return ""
}

// extractGalaxyRequirements records roles pulled from Galaxy.
func (b *emitter) extractGalaxyRequirements() {
	result := yamlparser.Parse(b.abs())
	if !result.Success {
		for _, err := range result.Errors {
			b.err(err)
		}
		return
	}

	emitRole := func(item any) {
		switch v := item.(type) {
		case string:
			b.entity("Role", map[string]any{"name": v})
		case map[string]any:
			name, ok := stringOf(v["name"])
			if !ok {
				name, ok = stringOf(v["src"])
			}
			if ok {
				props := map[string]any{"name": name}
				if version, ok := stringOf(v["version"]); ok {
					props["version"] = version
				}
				b.entity("Role", props)
			}
		}
	}

	switch root := result.Root.(type) {
	case []any:
		for _, item := range root {
			emitRole(item)
		}
	case map[string]any:
		for _, item := range listOf(root["roles"]) {
			emitRole(item)
		}
	}
}

// extractTemplate lifts variable usage and includes out of a Jinja
// template.
func (b *emitter) extractTemplate() {
	b.entity("Template", map[string]any{
		"repository": b.repository,
		"path":       b.rel,
	})
	templateRef := b.ref("Template", map[string]any{"path": b.rel})
	b.edge("IN_FILE", templateRef, b.fileRef(), nil)

	result := jinjaparser.Parse(b.abs())
	if !result.Success {
		for _, err := range result.Errors {
			b.err(err)
		}
		return
	}
	tpl, ok := result.Root.(jinjaparser.Template)
	if !ok {
		return
	}
	for _, v := range tpl.Variables {
		name := rootVarName(v)
		if name == "" || reservedJinjaNames[name] {
			continue
		}
		b.edge("USES_VAR", templateRef, b.ref("Variable", map[string]any{"name": name}), nil)
	}
	for _, inc := range tpl.Includes {
		resolved := b.resolveSibling(inc)
		b.entity("Template", map[string]any{
			"repository": b.repository,
			"path":       resolved,
		})
		b.edge("INCLUDES", templateRef, b.ref("Template", map[string]any{"path": resolved}), nil)
	}
	if tpl.Extends != "" {
		resolved := b.resolveSibling(tpl.Extends)
		b.entity("Template", map[string]any{
			"repository": b.repository,
			"path":       resolved,
		})
		b.edge("INCLUDES", templateRef, b.ref("Template", map[string]any{"path": resolved}), map[string]any{"via": "extends"})
	}
}

// rootVarName reduces a dotted/filtered expression to its leading
// identifier.
func rootVarName(expr string) string {
	for i, r := range expr {
		if r == '.' || r == '[' || r == '|' || r == ' ' {
			return expr[:i]
		}
	}
	return expr
}

// extractPythonScript looks inside .py files for dynamic inventory
// sources.
func (b *emitter) extractPythonScript() {
	result := pyparser.Parse(b.abs())
	if !result.Success {
		for _, err := range result.Errors {
			b.err(err)
		}
		return
	}
	script, ok := result.Root.(pyparser.Script)
	if !ok {
		return
	}
	if script.IsInventory {
		b.entity("Inventory", map[string]any{
			"repository": b.repository,
			"path":       b.rel,
			"format":     "script",
		})
		b.edge("IN_FILE", b.ref("Inventory", map[string]any{"path": b.rel}), b.fileRef(), nil)
	}
}

// extractVagrantfile lifts the box/provisioner metadata onto the File
// node.
func (b *emitter) extractVagrantfile() {
	vf, err := rubyparser.Parse(b.abs())
	if err != nil {
		b.err(err)
		return
	}
	props := map[string]any{
		"repository": b.repository,
		"path":       b.rel,
		"language":   "ruby",
	}
	if vf.Box != "" {
		props["vagrant_box"] = vf.Box
	}
	if vf.Hostname != "" {
		props["vagrant_hostname"] = vf.Hostname
	}
	if len(vf.Networks) > 0 {
		props["vagrant_networks"] = vf.Networks
	}
	if len(vf.Provisioners) > 0 {
		props["vagrant_provisioners"] = vf.Provisioners
	}
	b.entity("File", props)
}

// extractStaticInventory records an INI inventory and its host-line
// variable assignments.
func (b *emitter) extractStaticInventory() {
	b.entity("Inventory", map[string]any{
		"repository": b.repository,
		"path":       b.rel,
		"format":     "ini",
	})
	invRef := b.ref("Inventory", map[string]any{"path": b.rel})
	b.edge("IN_FILE", invRef, b.fileRef(), nil)

	f, err := os.Open(b.abs())
	if err != nil {
		b.err(err)
		return
	}
	defer f.Close()

	seen := map[string]bool{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "[") {
			continue
		}
		for _, field := range strings.Fields(line)[1:] {
			if eq := strings.IndexByte(field, '='); eq > 0 {
				name := field[:eq]
				if seen[name] {
					continue
				}
				seen[name] = true
				b.emitVariable(name, "inventory", &invRef, "DEFINES_VAR")
			}
		}
	}
}
