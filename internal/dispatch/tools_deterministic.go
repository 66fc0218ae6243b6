package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/repograph/gateway/internal/errors"
	"github.com/repograph/gateway/internal/guard"
	"github.com/repograph/gateway/internal/store"
)

// Deps bundles what the bundled tools need. Every deterministic tool
// binds user values strictly as query parameters; no user-visible
// string is ever rendered into query text.
type Deps struct {
	Store        store.Store
	Sessions     SessionStore
	Sanitizer    *guard.PathSanitizer
	QueryTimeout time.Duration
}

func (d Deps) read(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	callCtx, cancel := guard.WithDeadline(ctx, d.QueryTimeout)
	defer cancel()
	return d.Store.ExecuteRead(callCtx, query, params)
}

// templateTool is the shared shape of the fixed-query tools.
type templateTool struct {
	schema  ToolSchema
	execute func(ctx context.Context, sess *Session, args map[string]any) (string, error)
}

func (t *templateTool) Schema() ToolSchema { return t.schema }
func (t *templateTool) Execute(ctx context.Context, sess *Session, args map[string]any) (string, error) {
	return t.execute(ctx, sess, args)
}
func (t *templateTool) Deterministic() {}

// NewSetRepositoryContext stores the repository id in the session. The
// operation is idempotent: setting the same id again succeeds.
func NewSetRepositoryContext(deps Deps) Tool {
	return &templateTool{
		schema: ToolSchema{
			Name:        "set_repository_context",
			Description: "Scope subsequent queries to one indexed repository.",
			Params: map[string]ParamSpec{
				"repository_id": {Type: "string", Description: "Repository identifier used at indexing time", Required: true},
			},
		},
		execute: func(ctx context.Context, sess *Session, args map[string]any) (string, error) {
			repositoryID := stringArg(args, "repository_id")
			if sess == nil {
				return "", errors.UserInputError("No session attached to this call; open the event stream first")
			}
			if err := deps.Sessions.SetRepository(sess.ID, repositoryID); err != nil {
				return "", err
			}
			return fmt.Sprintf("Repository context set to %q.", repositoryID), nil
		},
	}
}

// NewFindDependencies follows include/import/vars-load edges out of a
// file.
func NewFindDependencies(deps Deps) Tool {
	return &templateTool{
		schema: ToolSchema{
			Name:        "find_dependencies",
			Description: "List files, vars files, and playbooks a file includes, imports, or loads.",
			Params: map[string]ParamSpec{
				"file_path": {Type: "string", Description: "Repo-relative file path", Required: true},
			},
		},
		execute: func(ctx context.Context, sess *Session, args map[string]any) (string, error) {
			repo, err := requireRepository(sess, "")
			if err != nil {
				return "", err
			}
			path, err := deps.Sanitizer.Sanitize(stringArg(args, "file_path"))
			if err != nil {
				return "", err
			}
			rows, err := deps.read(ctx, `
				MATCH (f:File {repository: $repository, path: $path})
				MATCH (f)-[:INCLUDES|IMPORTS|LOADS_VARS*1..3]->(dep)
				RETURN DISTINCT labels(dep)[0] AS kind,
				       coalesce(dep.path, dep.name) AS dependency
				ORDER BY kind, dependency LIMIT 100`,
				map[string]any{"repository": repo, "path": path})
			if err != nil {
				return "", err
			}
			return formatRows(rows), nil
		},
	}
}

// NewTraceVariable lists the definers and users of a variable.
func NewTraceVariable(deps Deps) Tool {
	return &templateTool{
		schema: ToolSchema{
			Name:        "trace_variable",
			Description: "Show where a variable is defined and where it is used.",
			Params: map[string]ParamSpec{
				"variable_name": {Type: "string", Description: "Variable name", Required: true},
			},
		},
		execute: func(ctx context.Context, sess *Session, args map[string]any) (string, error) {
			repo, err := requireRepository(sess, "")
			if err != nil {
				return "", err
			}
			rows, err := deps.read(ctx, `
				MATCH (v:Variable {repository: $repository, name: $name})
				OPTIONAL MATCH (definer)-[:DEFINES_VAR]->(v)
				OPTIONAL MATCH (user)-[:USES_VAR]->(v)
				RETURN v.scope AS scope, v.file_path AS defined_in,
				       collect(DISTINCT coalesce(definer.path, definer.name)) AS definers,
				       collect(DISTINCT coalesce(user.path, user.name)) AS users
				LIMIT 100`,
				map[string]any{"repository": repo, "name": stringArg(args, "variable_name")})
			if err != nil {
				return "", err
			}
			return formatRows(rows), nil
		},
	}
}

// NewGetRoleUsage groups USES_ROLE back-edges by repository; Role nodes
// are global, so this is the cross-repo question.
func NewGetRoleUsage(deps Deps) Tool {
	return &templateTool{
		schema: ToolSchema{
			Name:        "get_role_usage",
			Description: "Show which repositories and plays use a role.",
			Params: map[string]ParamSpec{
				"role_name": {Type: "string", Description: "Role name", Required: true},
			},
		},
		execute: func(ctx context.Context, sess *Session, args map[string]any) (string, error) {
			rows, err := deps.read(ctx, `
				MATCH (r:Role {name: $name})<-[:USES_ROLE]-(user)
				RETURN user.repository AS repository,
				       collect(DISTINCT coalesce(user.name, user.path)) AS used_by,
				       count(user) AS usages
				ORDER BY repository LIMIT 100`,
				map[string]any{"name": stringArg(args, "role_name")})
			if err != nil {
				return "", err
			}
			return formatRows(rows), nil
		},
	}
}

// NewAnalyzePlaybook summarizes a playbook: play count, task count,
// play names.
func NewAnalyzePlaybook(deps Deps) Tool {
	return &templateTool{
		schema: ToolSchema{
			Name:        "analyze_playbook",
			Description: "Summarize a playbook's plays and tasks.",
			Params: map[string]ParamSpec{
				"playbook_path": {Type: "string", Description: "Repo-relative playbook path", Required: true},
			},
		},
		execute: func(ctx context.Context, sess *Session, args map[string]any) (string, error) {
			repo, err := requireRepository(sess, "")
			if err != nil {
				return "", err
			}
			path, err := deps.Sanitizer.Sanitize(stringArg(args, "playbook_path"))
			if err != nil {
				return "", err
			}
			rows, err := deps.read(ctx, `
				MATCH (pb:Playbook {repository: $repository, path: $path})
				OPTIONAL MATCH (pb)-[:HAS_PLAY]->(p:Play)
				OPTIONAL MATCH (p)-[:HAS_TASK]->(t:Task)
				RETURN count(DISTINCT p) AS plays, count(DISTINCT t) AS tasks,
				       collect(DISTINCT p.name) AS play_names
				LIMIT 1`,
				map[string]any{"repository": repo, "path": path})
			if err != nil {
				return "", err
			}
			return formatRows(rows), nil
		},
	}
}

// NewFindTasksByModule lists the tasks invoking one module.
func NewFindTasksByModule(deps Deps) Tool {
	return &templateTool{
		schema: ToolSchema{
			Name:        "find_tasks_by_module",
			Description: "Find tasks that invoke a given module.",
			Params: map[string]ParamSpec{
				"module_name": {Type: "string", Description: "Module name, e.g. template or ansible.builtin.copy", Required: true},
			},
		},
		execute: func(ctx context.Context, sess *Session, args map[string]any) (string, error) {
			repo, err := requireRepository(sess, "")
			if err != nil {
				return "", err
			}
			rows, err := deps.read(ctx, `
				MATCH (t:Task {repository: $repository})
				WHERE t.module = $module OR t.module ENDS WITH '.' + $module
				RETURN t.name AS task, t.file_path AS file, t.module AS module
				ORDER BY file, task LIMIT 100`,
				map[string]any{"repository": repo, "module": stringArg(args, "module_name")})
			if err != nil {
				return "", err
			}
			return formatRows(rows), nil
		},
	}
}

// NewGetTaskHierarchy enumerates plays and tasks in execution order.
func NewGetTaskHierarchy(deps Deps) Tool {
	return &templateTool{
		schema: ToolSchema{
			Name:        "get_task_hierarchy",
			Description: "Enumerate a playbook's plays and tasks in order.",
			Params: map[string]ParamSpec{
				"playbook_path": {Type: "string", Description: "Repo-relative playbook path", Required: true},
			},
		},
		execute: func(ctx context.Context, sess *Session, args map[string]any) (string, error) {
			repo, err := requireRepository(sess, "")
			if err != nil {
				return "", err
			}
			path, err := deps.Sanitizer.Sanitize(stringArg(args, "playbook_path"))
			if err != nil {
				return "", err
			}
			rows, err := deps.read(ctx, `
				MATCH (pb:Playbook {repository: $repository, path: $path})-[:HAS_PLAY]->(p:Play)
				OPTIONAL MATCH (p)-[ht:HAS_TASK]->(t:Task)
				RETURN p.order AS play_order, p.name AS play,
				       t.order AS task_order, t.name AS task, t.module AS module
				ORDER BY play_order, task_order LIMIT 1000`,
				map[string]any{"repository": repo, "path": path})
			if err != nil {
				return "", err
			}
			return formatRows(rows), nil
		},
	}
}

// NewFindTemplateUsage shows the tasks rendering a template and the
// variables the template consumes.
func NewFindTemplateUsage(deps Deps) Tool {
	return &templateTool{
		schema: ToolSchema{
			Name:        "find_template_usage",
			Description: "Show which tasks render a template and which variables it uses.",
			Params: map[string]ParamSpec{
				"template_path": {Type: "string", Description: "Repo-relative template path", Required: true},
			},
		},
		execute: func(ctx context.Context, sess *Session, args map[string]any) (string, error) {
			repo, err := requireRepository(sess, "")
			if err != nil {
				return "", err
			}
			path, err := deps.Sanitizer.Sanitize(stringArg(args, "template_path"))
			if err != nil {
				return "", err
			}
			rows, err := deps.read(ctx, `
				MATCH (tpl:Template {repository: $repository, path: $path})
				OPTIONAL MATCH (t:Task)-[:USES_TEMPLATE]->(tpl)
				OPTIONAL MATCH (tpl)-[:USES_VAR]->(v:Variable)
				RETURN collect(DISTINCT t.name) AS rendered_by,
				       collect(DISTINCT v.name) AS variables
				LIMIT 1`,
				map[string]any{"repository": repo, "path": path})
			if err != nil {
				return "", err
			}
			return formatRows(rows), nil
		},
	}
}
