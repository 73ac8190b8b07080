package engine

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/computer-project/computer/internal/batch"
	"github.com/computer-project/computer/internal/collab"
	"github.com/computer-project/computer/internal/config"
	"github.com/computer-project/computer/internal/directive"
	"github.com/computer-project/computer/internal/logging"
	"github.com/computer-project/computer/internal/session"
	"github.com/computer-project/computer/internal/store"
)

func readDirOrFail(t *testing.T, path string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(path)
	require.NoError(t, err)
	return entries
}

type fakeFallback struct {
	content string
	err     error
	delay   time.Duration
}

func (f *fakeFallback) Execute(ctx context.Context, _ string) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.content, f.err
}

func newTestEngine(t *testing.T, fallback Fallback) (*Engine, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.New(dir, collab.NewDefaultSanitizer(), collab.NewDefaultRenderer(), logging.NewNop())
	require.NoError(t, err)
	sctx, err := session.LoadOrCreate(dir)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.MaxProcessingTimeSeconds = 1

	e := New(s, sctx, nil, nil, fallback, nil, cfg, logging.NewNop(), logging.NewPerformanceTracker(), ModeSequential)
	return e, s
}

func writeDirective(t *testing.T, s *store.Store, id, slug string, prereqs []string) {
	t.Helper()
	require.NoError(t, s.WriteNew(directive.Directive{
		Header: directive.Header{
			ID: id, Slug: slug, Status: "pending", Priority: directive.PriorityMedium,
			CreatedAt: time.Now(), Prerequisites: prereqs,
		},
		Prompt: "do the thing",
	}))
}

func TestRunSingle_SequentialFastSuccessRelocatesToExemplar(t *testing.T) {
	e, s := newTestEngine(t, &fakeFallback{content: "done"})
	writeDirective(t, s, "id-1", "task-one", nil)

	did, err := e.RunSingle(context.Background())
	require.NoError(t, err)
	require.True(t, did)

	// A success well under the default 30s exemplar threshold is an exemplar.
	root := s.Root()
	entries := readDirOrFail(t, root+"/"+store.FolderExemplar)
	require.Len(t, entries, 2) // directive + output artifact
}

func TestRunSingle_NoReadyWorkReturnsFalse(t *testing.T) {
	e, _ := newTestEngine(t, &fakeFallback{content: "done"})
	did, err := e.RunSingle(context.Background())
	require.NoError(t, err)
	require.False(t, did)
}

func TestRunSingle_FallbackFailureRelocatesToFailed(t *testing.T) {
	e, s := newTestEngine(t, &fakeFallback{err: errors.New("boom")})
	writeDirective(t, s, "id-2", "task-two", nil)

	did, err := e.RunSingle(context.Background())
	require.NoError(t, err)
	require.True(t, did)

	entries := readDirOrFail(t, s.Root()+"/"+store.FolderFailed)
	require.Len(t, entries, 2)
}

func TestRunSingle_NoExecutionPathFailsDirective(t *testing.T) {
	e, s := newTestEngine(t, nil)
	writeDirective(t, s, "id-3", "task-three", nil)

	did, err := e.RunSingle(context.Background())
	require.NoError(t, err)
	require.True(t, did)

	entries := readDirOrFail(t, s.Root()+"/"+store.FolderFailed)
	require.Len(t, entries, 2)
}

func TestRun_DrainsUntilNoWork(t *testing.T) {
	e, s := newTestEngine(t, &fakeFallback{content: "done"})
	writeDirective(t, s, "id-4", "first", nil)
	writeDirective(t, s, "id-5", "second", []string{"first"})

	require.NoError(t, e.Run(context.Background()))

	entries := readDirOrFail(t, s.Root()+"/"+store.FolderExemplar)
	require.Len(t, entries, 4) // two directives + two output artifacts
}

type fakeBatchSubmitter struct {
	results map[string]batch.Result
}

func (f *fakeBatchSubmitter) Submit(_ context.Context, job *batch.Job) error {
	job.RemoteID = "remote-" + job.ID
	return nil
}
func (f *fakeBatchSubmitter) Poll(_ context.Context, _ *batch.Job) (batch.Status, error) {
	return batch.StatusCompleted, nil
}
func (f *fakeBatchSubmitter) Fetch(_ context.Context, _ *batch.Job) (map[string]batch.Result, error) {
	return f.results, nil
}

func TestRunSingle_BatchModeProcessesAllReady(t *testing.T) {
	dir := t.TempDir()
	s, err := store.New(dir, collab.NewDefaultSanitizer(), collab.NewDefaultRenderer(), logging.NewNop())
	require.NoError(t, err)
	sctx, err := session.LoadOrCreate(dir)
	require.NoError(t, err)

	require.NoError(t, s.WriteNew(directive.Directive{
		Header: directive.Header{ID: "b1", Slug: "batch-one", Status: "pending", Priority: directive.PriorityMedium, CreatedAt: time.Now(), Platform: "claude", Model: "claude-3-sonnet"},
		Prompt: "batch task one",
	}))
	require.NoError(t, s.WriteNew(directive.Directive{
		Header: directive.Header{ID: "b2", Slug: "batch-two", Status: "pending", Priority: directive.PriorityMedium, CreatedAt: time.Now(), Platform: "claude", Model: "claude-3-sonnet"},
		Prompt: "batch task two",
	}))

	cfg := config.DefaultConfig()
	cfg.BatchPollIntervalSeconds = 0
	sub := &fakeBatchSubmitter{results: map[string]batch.Result{
		"b1": {DirectiveID: "b1", Success: true, TokensIn: 10, TokensOut: 5},
		"b2": {DirectiveID: "b2", Success: true, TokensIn: 10, TokensOut: 5},
	}}
	coord := batch.New(map[string]batch.Submitter{"claude": sub}, nil, cfg, logging.NewNop())

	e := New(s, sctx, nil, coord, nil, nil, cfg, logging.NewNop(), logging.NewPerformanceTracker(), ModeBatch)

	did, err := e.RunSingle(context.Background())
	require.NoError(t, err)
	require.True(t, did)

	entries := readDirOrFail(t, s.Root()+"/"+store.FolderExemplar)
	require.Len(t, entries, 4)
}
