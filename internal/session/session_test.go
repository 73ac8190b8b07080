package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/computer-project/computer/internal/directive"
)

func TestLoadOrCreate_CreatesFreshWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	c, err := LoadOrCreate(dir)
	require.NoError(t, err)
	require.NotEmpty(t, c.SessionID)
}

func TestLoadOrCreate_ResumesMostRecent(t *testing.T) {
	dir := t.TempDir()
	c1, err := LoadOrCreate(dir)
	require.NoError(t, err)
	require.NoError(t, c1.RecordTodoMapping("todo-1", "dir-1"))

	c2, err := LoadOrCreate(dir)
	require.NoError(t, err)
	require.Equal(t, c1.SessionID, c2.SessionID)
	require.Equal(t, "dir-1", c2.TodoDirectiveMap["todo-1"])
}

func TestAppendCompletion_PersistsAndOrdersHistory(t *testing.T) {
	dir := t.TempDir()
	c, err := LoadOrCreate(dir)
	require.NoError(t, err)

	require.NoError(t, c.AppendCompletion(CompletionEntry{
		DirectiveID: "d1", Task: "build api", Success: true, Duration: 1.5, Summary: "done", Timestamp: time.Now(),
	}))

	reloaded, err := LoadOrCreate(dir)
	require.NoError(t, err)
	require.Len(t, reloaded.CompletedDirectives, 1)
	require.Equal(t, "d1", reloaded.CompletedDirectives[0].DirectiveID)
	require.Len(t, reloaded.ExecutionHistory, 1)
}

func TestContextBlock_IncludesPrerequisiteSummary(t *testing.T) {
	dir := t.TempDir()
	c, err := LoadOrCreate(dir)
	require.NoError(t, err)
	// Mirrors production: the completion log keys on the directive's
	// UUID, but a later directive's Prerequisites names the *slug* of
	// the directive it depends on (decomposer/bridge never record an
	// id there).
	require.NoError(t, c.AppendCompletion(CompletionEntry{
		DirectiveID: "11111111-1111-1111-1111-111111111111", Slug: "prev-slug",
		Task: "step one", Success: true, Summary: "finished step one", Timestamp: time.Now(),
	}))

	d := directive.Directive{Header: directive.Header{Prerequisites: []string{"prev-slug"}}}
	block := c.ContextBlock(d, nil)
	require.Contains(t, block, "finished step one")
}

func TestContextBlock_LimitsToLastFiveCompletions(t *testing.T) {
	dir := t.TempDir()
	c, err := LoadOrCreate(dir)
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		require.NoError(t, c.AppendCompletion(CompletionEntry{DirectiveID: "d", Task: "t", Success: true, Timestamp: time.Now()}))
	}

	recent := c.lastNCompletions(5)
	require.Len(t, recent, 5)
}
