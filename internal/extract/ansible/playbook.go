package ansible

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/repograph/gateway/internal/parse/yamlparser"
)

// taskKeywords are the task-level directives that are never the module
// key. The module is the first remaining key.
var taskKeywords = map[string]bool{
	"name": true, "when": true, "register": true, "loop": true,
	"loop_control": true, "with_items": true, "with_dict": true,
	"with_fileglob": true, "notify": true, "tags": true, "become": true,
	"become_user": true, "become_method": true, "vars": true,
	"delegate_to": true, "run_once": true, "changed_when": true,
	"failed_when": true, "until": true, "retries": true, "delay": true,
	"environment": true, "args": true, "ignore_errors": true,
	"no_log": true, "any_errors_fatal": true, "listen": true,
	"block": true, "rescue": true, "always": true,
}

// playKeys distinguish a playbook document from a bare task list.
var playKeys = []string{"hosts", "import_playbook", "roles", "tasks"}

// extractTopLevelYAML decides what a free-standing YAML file is: a
// playbook (list of plays), a vars map, or nothing recognizable beyond
// its File node.
func (b *emitter) extractTopLevelYAML() {
	result := yamlparser.Parse(b.abs())
	if !result.Success {
		for _, err := range result.Errors {
			b.err(err)
		}
		return
	}

	switch root := result.Root.(type) {
	case []any:
		if isPlaybook(root) {
			b.extractPlaybook(root)
			return
		}
		b.extractTaskList(root, b.fileRef(), "HAS_TASK")
	case map[string]any:
		b.emitVarsFrom(root, "vars_file", nil)
	}
}

func isPlaybook(root []any) bool {
	for _, item := range root {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, key := range playKeys {
			if _, ok := m[key]; ok {
				return true
			}
		}
	}
	return false
}

// extractPlaybook emits the Playbook node and walks its plays.
func (b *emitter) extractPlaybook(root []any) {
	b.entity("Playbook", map[string]any{
		"repository": b.repository,
		"path":       b.rel,
		"name":       path.Base(b.rel),
	})
	playbookRef := b.ref("Playbook", map[string]any{"path": b.rel})
	b.edge("IN_FILE", playbookRef, b.fileRef(), nil)

	order := 0
	for _, item := range root {
		play, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if target, ok := stringOf(play["import_playbook"]); ok {
			included := b.resolveSibling(target)
			b.edge("IMPORTS", playbookRef, b.ref("Playbook", map[string]any{"path": included}), nil)
			continue
		}
		if _, ok := play["hosts"]; !ok {
			continue
		}
		b.extractPlay(play, playbookRef, order)
		order++
	}
}

func (b *emitter) extractPlay(play map[string]any, playbookRef modelRef, order int) {
	name, _ := stringOf(play["name"])
	if name == "" {
		name = fmt.Sprintf("play-%d", order)
	}
	hosts, _ := stringOf(play["hosts"])

	b.entity("Play", map[string]any{
		"repository":    b.repository,
		"playbook_path": b.rel,
		"name":          name,
		"order":         order,
		"hosts":         hosts,
	})
	playRef := b.ref("Play", map[string]any{"name": name})
	b.edge("HAS_PLAY", playbookRef, playRef, map[string]any{"order": order})

	// Play-level vars define play-scoped variables.
	if vars, ok := play["vars"].(map[string]any); ok {
		b.emitVarsFrom(vars, "play", &playRef)
	}

	// vars_files load external definitions.
	for _, vf := range listOf(play["vars_files"]) {
		if target, ok := stringOf(vf); ok {
			resolved := b.resolveSibling(target)
			b.entity("VarsFile", map[string]any{
				"repository": b.repository,
				"path":       resolved,
			})
			b.edge("LOADS_VARS", playRef, b.ref("VarsFile", map[string]any{"path": resolved}), nil)
		}
	}

	// Roles referenced by the play. Role nodes are global.
	for _, r := range listOf(play["roles"]) {
		roleName := ""
		switch v := r.(type) {
		case string:
			roleName = v
		case map[string]any:
			roleName, _ = stringOf(v["role"])
			if roleName == "" {
				roleName, _ = stringOf(v["name"])
			}
		}
		if roleName == "" {
			continue
		}
		b.entity("Role", map[string]any{"name": roleName})
		b.edge("USES_ROLE", playRef, roleRef(roleName), nil)
	}

	for _, section := range []string{"pre_tasks", "tasks", "post_tasks"} {
		if tasks := listOf(play[section]); tasks != nil {
			b.extractTaskList(tasks, playRef, "HAS_TASK")
		}
	}

	for _, h := range listOf(play["handlers"]) {
		handler, ok := h.(map[string]any)
		if !ok {
			continue
		}
		b.extractHandler(handler, &playRef)
	}
}

// extractTaskList walks a task sequence, recursing into blocks, and
// attaches each task to owner via edgeKind.
func (b *emitter) extractTaskList(tasks []any, owner modelRef, edgeKind string) {
	order := 0
	var walk func(items []any)
	walk = func(items []any) {
		for _, item := range items {
			task, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if block, ok := task["block"].([]any); ok {
				walk(block)
				for _, section := range []string{"rescue", "always"} {
					if extra, ok := task[section].([]any); ok {
						walk(extra)
					}
				}
				continue
			}
			b.extractTask(task, owner, edgeKind, order)
			order++
		}
	}
	walk(tasks)
}

func (b *emitter) extractTask(task map[string]any, owner modelRef, edgeKind string, order int) {
	name, _ := stringOf(task["name"])
	if name == "" {
		name = fmt.Sprintf("task-%d", order)
	}
	module := moduleOf(task)

	b.entity("Task", map[string]any{
		"repository": b.repository,
		"file_path":  b.rel,
		"name":       name,
		"order":      order,
		"module":     module,
	})
	taskRef := b.ref("Task", map[string]any{"name": name})
	b.edge(edgeKind, owner, taskRef, map[string]any{"order": order})
	b.edge("IN_FILE", taskRef, b.fileRef(), nil)

	// Notifications reach handlers by name; the placeholder node merges
	// with the defined handler when both land in the same file.
	for _, n := range listOf(task["notify"]) {
		if handlerName, ok := stringOf(n); ok {
			b.entity("Handler", map[string]any{
				"repository": b.repository,
				"file_path":  b.rel,
				"name":       handlerName,
			})
			b.edge("NOTIFIES", taskRef, b.ref("Handler", map[string]any{"name": handlerName}), nil)
		}
	}

	// register and set_fact introduce task-scoped variables.
	if reg, ok := stringOf(task["register"]); ok {
		b.emitVariable(reg, "task", &taskRef, "DEFINES_VAR")
	}
	if module == "set_fact" || module == "ansible.builtin.set_fact" {
		if facts, ok := task[module].(map[string]any); ok {
			for factName := range facts {
				b.emitVariable(factName, "task", &taskRef, "DEFINES_VAR")
			}
		}
	}

	// The template module links the task to its source template.
	if module == "template" || module == "ansible.builtin.template" {
		if args, ok := task[module].(map[string]any); ok {
			if src, ok := stringOf(args["src"]); ok {
				resolved := b.resolveTemplate(src)
				b.entity("Template", map[string]any{
					"repository": b.repository,
					"path":       resolved,
				})
				b.edge("USES_TEMPLATE", taskRef, b.ref("Template", map[string]any{"path": resolved}), nil)
			}
		}
	}

	// Includes and imports link to the target file.
	for _, key := range []string{"include_tasks", "import_tasks", "include", "include_vars"} {
		if target, ok := includeTarget(task[key]); ok {
			resolved := b.resolveSibling(target)
			kind := "INCLUDES"
			if strings.HasPrefix(key, "import") {
				kind = "IMPORTS"
			}
			b.entity("File", map[string]any{
				"repository": b.repository,
				"path":       resolved,
				"language":   "yaml",
			})
			b.edge(kind, b.fileRef(), b.ref("File", map[string]any{"path": resolved}), map[string]any{"via": key})
		}
	}
	for _, key := range []string{"include_role", "import_role"} {
		if args, ok := task[key].(map[string]any); ok {
			if roleName, ok := stringOf(args["name"]); ok {
				b.entity("Role", map[string]any{"name": roleName})
				b.edge("USES_ROLE", owner, roleRef(roleName), map[string]any{"via": key})
			}
		}
	}

	// Template expressions in the task body consume variables.
	for _, varName := range jinjaVarsIn(task) {
		b.edge("USES_VAR", taskRef, b.ref("Variable", map[string]any{"name": varName}), nil)
	}
}

func (b *emitter) extractHandler(handler map[string]any, owner *modelRef) {
	name, _ := stringOf(handler["name"])
	if name == "" {
		return
	}
	b.entity("Handler", map[string]any{
		"repository": b.repository,
		"file_path":  b.rel,
		"name":       name,
	})
	handlerRef := b.ref("Handler", map[string]any{"name": name})
	if owner != nil {
		b.edge("HAS_HANDLER", *owner, handlerRef, nil)
	} else {
		b.edge("HAS_HANDLER", b.fileRef(), handlerRef, nil)
	}
	b.edge("IN_FILE", handlerRef, b.fileRef(), nil)
}

// moduleOf finds the module a task invokes: the first key that is not a
// task keyword.
func moduleOf(task map[string]any) string {
	for key := range task {
		if !taskKeywords[key] {
			return key
		}
	}
	return ""
}

// includeTarget accepts both the scalar and {file: ...} include forms.
func includeTarget(v any) (string, bool) {
	if s, ok := stringOf(v); ok {
		return s, true
	}
	if m, ok := v.(map[string]any); ok {
		return stringOf(m["file"])
	}
	return "", false
}

// resolveSibling resolves a referenced path relative to this file's
// directory, leaving absolute-ish references untouched.
func (b *emitter) resolveSibling(target string) string {
	if strings.HasPrefix(target, "/") {
		return target
	}
	return path.Join(path.Dir(b.rel), target)
}

// resolveTemplate resolves a template src against the conventional
// templates/ directory next to the task file.
func (b *emitter) resolveTemplate(src string) string {
	if strings.HasPrefix(src, "/") || strings.Contains(src, "/") {
		return b.resolveSibling(src)
	}
	dir := path.Dir(b.rel)
	// roles/x/tasks/main.yml templates live in roles/x/templates/.
	if path.Base(dir) == "tasks" {
		return path.Join(path.Dir(dir), "templates", src)
	}
	return path.Join(dir, "templates", src)
}

var jinjaExprRe = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)`)

// reservedJinjaNames never resolve to user-defined variables.
var reservedJinjaNames = map[string]bool{
	"item": true, "lookup": true, "ansible_facts": true,
	"hostvars": true, "groups": true, "inventory_hostname": true,
	"play_hosts": true, "range": true, "now": true, "undef": true,
}

// jinjaVarsIn scans every string value in a task body for template
// expressions and returns the distinct root variable names.
func jinjaVarsIn(v any) []string {
	seen := map[string]bool{}
	var out []string
	var scan func(any)
	scan = func(node any) {
		switch t := node.(type) {
		case string:
			for _, m := range jinjaExprRe.FindAllStringSubmatch(t, -1) {
				name := m[1]
				if reservedJinjaNames[name] || seen[name] {
					continue
				}
				seen[name] = true
				out = append(out, name)
			}
		case map[string]any:
			for _, child := range t {
				scan(child)
			}
		case []any:
			for _, child := range t {
				scan(child)
			}
		}
	}
	scan(v)
	return out
}

func stringOf(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func listOf(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case nil:
		return nil
	default:
		return []any{t}
	}
}
