package ansible

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repograph/gateway/internal/extract/workerpool"
	"github.com/repograph/gateway/internal/model"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func fixtureRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "site.yml", `---
- name: webservers
  hosts: web
  vars:
    http_port: 8080
  vars_files:
    - vars/common.yml
  roles:
    - nginx
  tasks:
    - name: render config
      template:
        src: nginx.conf.j2
        dest: /etc/nginx/nginx.conf
      notify:
        - restart nginx
    - name: open firewall
      ansible.builtin.firewalld:
        port: "{{ http_port }}/tcp"
        state: enabled
  handlers:
    - name: restart nginx
      service:
        name: nginx
        state: restarted
`)
	writeFile(t, root, "vars/common.yml", "domain: example.org\nadmin_email: ops@example.org\n")
	writeFile(t, root, "group_vars/all.yml", "ntp_server: pool.ntp.org\n")
	writeFile(t, root, "roles/nginx/tasks/main.yml", `---
- name: install nginx
  apt:
    name: nginx
    state: present
- name: include tuning
  include_tasks: tuning.yml
`)
	writeFile(t, root, "roles/nginx/handlers/main.yml", `---
- name: restart nginx
  service:
    name: nginx
    state: restarted
`)
	writeFile(t, root, "roles/nginx/meta/main.yml", "dependencies:\n  - common\n")
	writeFile(t, root, "templates/motd.j2", "Welcome to {{ inventory_hostname }} run by {{ admin_email }}\n")
	writeFile(t, root, "requirements.yml", "roles:\n  - name: geerlingguy.docker\n    version: \"6.1.0\"\n")
	writeFile(t, root, "hosts", "[web]\nweb1 ansible_host=10.0.0.5 http_port=8080\n")
	return root
}

func collect(t *testing.T, root string) ([]model.Entity, []model.Edge) {
	t.Helper()
	e := New(workerpool.DefaultConfig())
	ctx := context.Background()

	var entities []model.Entity
	ents, errs := e.ExtractEntities(ctx, root, "infra")
	for ent := range ents {
		entities = append(entities, ent)
	}
	for err := range errs {
		t.Logf("entity extraction error: %v", err)
	}

	var edges []model.Edge
	eds, errs2 := e.ExtractEdges(ctx, root, "infra")
	for edge := range eds {
		edges = append(edges, edge)
	}
	for err := range errs2 {
		t.Logf("edge extraction error: %v", err)
	}
	return entities, edges
}

func kindsOf(entities []model.Entity) map[string]int {
	counts := map[string]int{}
	for _, e := range entities {
		counts[e.Kind]++
	}
	return counts
}

func findEntity(entities []model.Entity, kind string, match func(map[string]any) bool) *model.Entity {
	for i := range entities {
		if entities[i].Kind == kind && match(entities[i].Properties) {
			return &entities[i]
		}
	}
	return nil
}

func hasEdge(edges []model.Edge, kind string, match func(model.Edge) bool) bool {
	for _, e := range edges {
		if e.Kind == kind && match(e) {
			return true
		}
	}
	return false
}

func TestExtractPlaybookGraph(t *testing.T) {
	root := fixtureRepo(t)
	entities, edges := collect(t, root)
	counts := kindsOf(entities)

	assert.GreaterOrEqual(t, counts["Playbook"], 1)
	assert.GreaterOrEqual(t, counts["Play"], 1)
	assert.GreaterOrEqual(t, counts["Task"], 4, "playbook tasks plus role tasks")
	assert.GreaterOrEqual(t, counts["Handler"], 2, "play handler plus role handler")
	assert.GreaterOrEqual(t, counts["Variable"], 4)
	assert.GreaterOrEqual(t, counts["Template"], 1)
	assert.GreaterOrEqual(t, counts["Role"], 2, "nginx, its dependency, and the galaxy role")

	play := findEntity(entities, "Play", func(p map[string]any) bool { return p["name"] == "webservers" })
	require.NotNil(t, play)
	assert.Equal(t, "site.yml", play.Properties["playbook_path"])
	assert.Equal(t, 0, play.Properties["order"])
	assert.Equal(t, "web", play.Properties["hosts"])

	assert.True(t, hasEdge(edges, "HAS_PLAY", func(e model.Edge) bool {
		return e.From.Properties["path"] == "site.yml"
	}))
	assert.True(t, hasEdge(edges, "USES_ROLE", func(e model.Edge) bool {
		return e.To.Properties["name"] == "nginx"
	}))
	assert.True(t, hasEdge(edges, "LOADS_VARS", func(e model.Edge) bool {
		return e.To.Properties["path"] == "vars/common.yml"
	}))
}

func TestEveryNonRoleEntityCarriesRepository(t *testing.T) {
	root := fixtureRepo(t)
	entities, _ := collect(t, root)
	for _, e := range entities {
		if model.IsGlobal(e.Kind) {
			assert.NotContains(t, e.Properties, "repository",
				"Role stays repository-free: %v", e.Properties)
			continue
		}
		assert.Equal(t, "infra", e.Properties["repository"],
			"%s entity missing repository: %v", e.Kind, e.Properties)
	}
}

func TestNotifyEmitsPlaceholderHandler(t *testing.T) {
	root := fixtureRepo(t)
	entities, edges := collect(t, root)

	placeholder := findEntity(entities, "Handler", func(p map[string]any) bool {
		return p["name"] == "restart nginx" && p["file_path"] == "site.yml"
	})
	require.NotNil(t, placeholder, "notify emits a placeholder handler in the notifying file")

	assert.True(t, hasEdge(edges, "NOTIFIES", func(e model.Edge) bool {
		return e.To.Properties["name"] == "restart nginx"
	}))
}

func TestTemplateModuleLinksTemplate(t *testing.T) {
	root := fixtureRepo(t)
	_, edges := collect(t, root)
	assert.True(t, hasEdge(edges, "USES_TEMPLATE", func(e model.Edge) bool {
		return e.To.Properties["path"] == "templates/nginx.conf.j2"
	}))
}

func TestTaskUsesVariables(t *testing.T) {
	root := fixtureRepo(t)
	_, edges := collect(t, root)
	assert.True(t, hasEdge(edges, "USES_VAR", func(e model.Edge) bool {
		return e.To.Properties["name"] == "http_port"
	}))
}

func TestJinjaTemplateUsesVars(t *testing.T) {
	root := fixtureRepo(t)
	_, edges := collect(t, root)
	assert.True(t, hasEdge(edges, "USES_VAR", func(e model.Edge) bool {
		return e.From.Kind == "Template" && e.To.Properties["name"] == "admin_email"
	}))
}

func TestRoleMetaDependencies(t *testing.T) {
	root := fixtureRepo(t)
	_, edges := collect(t, root)
	assert.True(t, hasEdge(edges, "DEPENDS_ON", func(e model.Edge) bool {
		return e.From.Properties["name"] == "nginx" && e.To.Properties["name"] == "common"
	}))
}

func TestGalaxyRequirements(t *testing.T) {
	root := fixtureRepo(t)
	entities, _ := collect(t, root)
	role := findEntity(entities, "Role", func(p map[string]any) bool {
		return p["name"] == "geerlingguy.docker"
	})
	require.NotNil(t, role)
	assert.Equal(t, "6.1.0", role.Properties["version"])
}

func TestStaticInventoryVariables(t *testing.T) {
	root := fixtureRepo(t)
	entities, edges := collect(t, root)

	inv := findEntity(entities, "Inventory", func(p map[string]any) bool {
		return p["path"] == "hosts"
	})
	require.NotNil(t, inv)
	assert.Equal(t, "ini", inv.Properties["format"])

	assert.True(t, hasEdge(edges, "DEFINES_VAR", func(e model.Edge) bool {
		return e.From.Kind == "Inventory" && e.To.Properties["name"] == "ansible_host"
	}))
}

func TestExtractionIsDeterministic(t *testing.T) {
	root := fixtureRepo(t)
	entities1, edges1 := collect(t, root)
	entities2, edges2 := collect(t, root)

	assert.Equal(t, kindsOf(entities1), kindsOf(entities2))
	assert.Equal(t, len(edges1), len(edges2))
}

func TestUnparseableFileStillYieldsFileNode(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "broken.yml", "  : : not yaml\n\t- {{{{\n")

	entities, _ := collect(t, root)
	file := findEntity(entities, "File", func(p map[string]any) bool {
		return p["path"] == "broken.yml"
	})
	require.NotNil(t, file, "a file that fails to parse still contributes its File node")
}
