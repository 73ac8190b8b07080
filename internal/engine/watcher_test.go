package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/computer-project/computer/internal/collab"
	"github.com/computer-project/computer/internal/config"
	"github.com/computer-project/computer/internal/directive"
	"github.com/computer-project/computer/internal/logging"
	"github.com/computer-project/computer/internal/session"
	"github.com/computer-project/computer/internal/store"
)

func TestWatcher_StartStopIsIdempotent(t *testing.T) {
	e, s := newTestEngine(t, &fakeFallback{content: "done"})

	w, err := NewWatcher(e, filepath.Join(s.Root(), store.FolderNew), 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Start(ctx)) // second Start is a no-op
	w.Stop()
	w.Stop() // second Stop is a no-op
}

func TestWatcher_TriggersPassOnNewDirective(t *testing.T) {
	dir := t.TempDir()
	s, err := store.New(dir, collab.NewDefaultSanitizer(), collab.NewDefaultRenderer(), logging.NewNop())
	require.NoError(t, err)
	sctx, err := session.LoadOrCreate(dir)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.MaxProcessingTimeSeconds = 1
	e := New(s, sctx, nil, nil, &fakeFallback{content: "done"}, nil, cfg, logging.NewNop(), logging.NewPerformanceTracker(), ModeSequential)

	w, err := NewWatcher(e, filepath.Join(s.Root(), store.FolderNew), 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, s.WriteNew(directive.Directive{
		Header: directive.Header{ID: "watch-1", Slug: "watch-task", Status: "pending", Priority: directive.PriorityMedium, CreatedAt: time.Now()},
		Prompt: "do the watched thing",
	}))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		entries, err := os.ReadDir(filepath.Join(s.Root(), store.FolderExemplar))
		require.NoError(t, err)
		if len(entries) > 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("watcher did not relocate directive to exemplar within deadline")
}
