package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/computer-project/computer/internal/collab"
	"github.com/computer-project/computer/internal/directive"
	"github.com/computer-project/computer/internal/logging"
	"github.com/computer-project/computer/internal/session"
	"github.com/computer-project/computer/internal/store"
)

func newTestBridge(t *testing.T) (*Bridge, *store.Store, *session.Context) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.New(dir, collab.NewDefaultSanitizer(), collab.NewDefaultRenderer(), logging.NewNop())
	require.NoError(t, err)
	ctx, err := session.LoadOrCreate(dir)
	require.NoError(t, err)
	return New(s, ctx, collab.NewDefaultSanitizer(), logging.NewNop()), s, ctx
}

func TestForward_ChainsPrerequisitesToImmediatePredecessor(t *testing.T) {
	b, _, _ := newTestBridge(t)

	todos := []TodoItem{
		{ID: "t1", Content: "set up schema", Priority: "high"},
		{ID: "t2", Content: "write handler", Priority: "medium"},
		{ID: "t3", Content: "add tests", Priority: "low"},
	}

	records, err := b.Forward(todos, "claude", "claude-3-sonnet")
	require.NoError(t, err)
	require.Len(t, records, 3)

	require.Empty(t, records[0].Header.Prerequisites)
	require.Equal(t, []string{records[0].Header.Slug}, records[1].Header.Prerequisites)
	require.Equal(t, []string{records[1].Header.Slug}, records[2].Header.Prerequisites)

	require.Equal(t, "t1", records[0].Header.ClaudeTodoID)
	require.Equal(t, 1, records[1].Header.TodoIndex)
	require.Equal(t, 3, records[2].Header.TotalTodos)
}

func TestForward_RecordsTodoMappingInSession(t *testing.T) {
	b, _, ctx := newTestBridge(t)

	records, err := b.Forward([]TodoItem{{ID: "t1", Content: "do a thing"}}, "claude", "claude-3-sonnet")
	require.NoError(t, err)
	require.Equal(t, records[0].Header.ID, ctx.TodoDirectiveMap["t1"])
}

func TestSync_RewritesMatchingTodoStatus(t *testing.T) {
	b, _, _ := newTestBridge(t)

	todos := []TodoItem{{ID: "t1", Status: TodoStatusPending}, {ID: "t2", Status: TodoStatusPending}}
	d := directiveWithTodoID("t2")

	updated := b.Sync(todos, d, TodoStatusCompleted)
	require.Equal(t, TodoStatusPending, updated[0].Status)
	require.Equal(t, TodoStatusCompleted, updated[1].Status)
}

func TestSync_NoOpWithoutTodoID(t *testing.T) {
	b, _, _ := newTestBridge(t)

	todos := []TodoItem{{ID: "t1", Status: TodoStatusPending}}
	updated := b.Sync(todos, directiveWithTodoID(""), TodoStatusCompleted)
	require.Equal(t, TodoStatusPending, updated[0].Status)
}

func TestScan_ProjectsStatusFromFolder(t *testing.T) {
	b, s, _ := newTestBridge(t)

	records, err := b.Forward([]TodoItem{
		{ID: "t1", Content: "first task"},
		{ID: "t2", Content: "second task"},
	}, "claude", "claude-3-sonnet")
	require.NoError(t, err)

	require.NoError(t, s.WriteNew(records[0]))
	require.NoError(t, s.WriteNew(records[1]))

	ready, err := s.ListReady()
	require.NoError(t, err)
	require.Len(t, ready, 1) // only the one with no unmet prerequisites

	require.NoError(t, s.Relocate(ready[0].Directive, store.FolderSuccess))

	todos, err := b.Scan()
	require.NoError(t, err)

	var gotT1 bool
	for _, td := range todos {
		if td.ID == "t1" {
			gotT1 = true
			require.Equal(t, TodoStatusCompleted, td.Status)
		}
	}
	require.True(t, gotT1)
}

func directiveWithTodoID(id string) directive.Directive {
	return directive.Directive{Header: directive.Header{ClaudeTodoID: id}}
}
