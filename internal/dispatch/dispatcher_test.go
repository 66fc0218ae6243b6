package dispatch

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repograph/gateway/internal/errors"
	"github.com/repograph/gateway/internal/guard"
)

// fakeStore returns canned rows and records the queries it saw.
type fakeStore struct {
	rows    []map[string]any
	err     error
	queries []string
	params  []map[string]any
}

func (f *fakeStore) ExecuteRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	f.queries = append(f.queries, query)
	f.params = append(f.params, params)
	return f.rows, f.err
}
func (f *fakeStore) ExecuteWrite(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	return f.rows, f.err
}
func (f *fakeStore) ListNodeLabels(ctx context.Context) ([]string, error)        { return nil, nil }
func (f *fakeStore) ListRelationshipTypes(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeStore) VerifyConnectivity(ctx context.Context) error                { return nil }
func (f *fakeStore) Close(ctx context.Context) error                             { return nil }

func testDeps(st *fakeStore) Deps {
	return Deps{
		Store:        st,
		Sessions:     NewMemorySessionStore(),
		Sanitizer:    &guard.PathSanitizer{},
		QueryTimeout: 5 * time.Second,
	}
}

func newTestDispatcher(t *testing.T, st *fakeStore) (*Dispatcher, Deps) {
	t.Helper()
	deps := testDeps(st)
	d := NewDispatcher(deps.Sessions, nil)
	d.Register(NewSetRepositoryContext(deps))
	d.Register(NewFindDependencies(deps))
	d.Register(NewTraceVariable(deps))
	d.Register(NewGetRoleUsage(deps))
	return d, deps
}

func TestDispatchUnknownTool(t *testing.T) {
	d, _ := newTestDispatcher(t, &fakeStore{})
	_, err := d.Dispatch(context.Background(), "s1", "no_such_tool", nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindUserInput, errors.KindOf(err))
	assert.Contains(t, err.Error(), "no_such_tool")
}

func TestDispatchValidatesArgs(t *testing.T) {
	d, deps := newTestDispatcher(t, &fakeStore{})
	_, err := deps.Sessions.Open("s1")
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), "s1", "find_dependencies", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file_path")

	_, err = d.Dispatch(context.Background(), "s1", "find_dependencies", map[string]any{
		"file_path": 42,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a string")

	_, err = d.Dispatch(context.Background(), "s1", "find_dependencies", map[string]any{
		"file_path": "x.yml", "bogus": "y",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown argument")
}

func TestSetRepositoryContextRoundTrip(t *testing.T) {
	d, deps := newTestDispatcher(t, &fakeStore{})
	_, err := deps.Sessions.Open("s1")
	require.NoError(t, err)

	out, err := d.Dispatch(context.Background(), "s1", "set_repository_context", map[string]any{
		"repository_id": "infra",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "infra")

	sess, ok := deps.Sessions.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "infra", sess.RepositoryID)

	// Idempotent: setting the same id again succeeds.
	_, err = d.Dispatch(context.Background(), "s1", "set_repository_context", map[string]any{
		"repository_id": "infra",
	})
	assert.NoError(t, err)
}

func TestSetRepositoryContextRejectsBadID(t *testing.T) {
	d, deps := newTestDispatcher(t, &fakeStore{})
	_, err := deps.Sessions.Open("s1")
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), "s1", "set_repository_context", map[string]any{
		"repository_id": `in"fra`,
	})
	require.Error(t, err)
	assert.Equal(t, errors.KindUserInput, errors.KindOf(err))
}

func TestRepoScopedToolNeedsContext(t *testing.T) {
	d, deps := newTestDispatcher(t, &fakeStore{})
	_, err := deps.Sessions.Open("s1")
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), "s1", "trace_variable", map[string]any{
		"variable_name": "http_port",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set_repository_context")
}

func TestFindDependenciesParameterizesInput(t *testing.T) {
	st := &fakeStore{rows: []map[string]any{{"kind": "VarsFile", "dependency": "vars/common.yml"}}}
	d, deps := newTestDispatcher(t, st)
	_, err := deps.Sessions.Open("s1")
	require.NoError(t, err)
	require.NoError(t, deps.Sessions.SetRepository("s1", "infra"))

	out, err := d.Dispatch(context.Background(), "s1", "find_dependencies", map[string]any{
		"file_path": "site.yml",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "vars/common.yml")

	require.Len(t, st.params, 1)
	assert.Equal(t, "infra", st.params[0]["repository"])
	assert.Equal(t, "site.yml", st.params[0]["path"])
	assert.NotContains(t, st.queries[0], "site.yml", "user input never lands in query text")
}

func TestFindDependenciesRejectsTraversal(t *testing.T) {
	d, deps := newTestDispatcher(t, &fakeStore{})
	_, err := deps.Sessions.Open("s1")
	require.NoError(t, err)
	require.NoError(t, deps.Sessions.SetRepository("s1", "infra"))

	_, err = d.Dispatch(context.Background(), "s1", "find_dependencies", map[string]any{
		"file_path": "../../etc/passwd",
	})
	require.Error(t, err)
	assert.Equal(t, errors.KindUserInput, errors.KindOf(err))
}

func TestGetRoleUsageIsGlobal(t *testing.T) {
	st := &fakeStore{rows: []map[string]any{{"repository": "infra", "usages": int64(2)}}}
	d, deps := newTestDispatcher(t, st)
	_, err := deps.Sessions.Open("s1")
	require.NoError(t, err)

	// No repository context needed: roles are global.
	out, err := d.Dispatch(context.Background(), "s1", "get_role_usage", map[string]any{
		"role_name": "nginx",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "infra")
}

func TestInternalErrorsAreCorrelated(t *testing.T) {
	st := &fakeStore{err: assert.AnError}
	d, deps := newTestDispatcher(t, st)
	_, err := deps.Sessions.Open("s1")
	require.NoError(t, err)
	require.NoError(t, deps.Sessions.SetRepository("s1", "infra"))

	_, err = d.Dispatch(context.Background(), "s1", "trace_variable", map[string]any{
		"variable_name": "x",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference ")
	assert.NotContains(t, err.Error(), assert.AnError.Error(),
		"raw internal details never reach the caller")
}

func TestBoltSessionStorePersistsRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := NewBoltSessionStore(path)
	require.NoError(t, err)

	_, err = store.Open("chan-1")
	require.NoError(t, err)
	require.NoError(t, store.SetRepository("chan-1", "infra"))
	require.NoError(t, store.Close("chan-1"))
	require.NoError(t, store.Shutdown())

	reopened, err := NewBoltSessionStore(path)
	require.NoError(t, err)
	defer reopened.Shutdown()

	sess, err := reopened.Open("chan-1")
	require.NoError(t, err)
	assert.Equal(t, "infra", sess.RepositoryID, "repository scope survives a restart")
}
