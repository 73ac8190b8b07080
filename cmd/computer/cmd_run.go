package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/computer-project/computer/internal/engine"
	"github.com/computer-project/computer/internal/store"
)

var (
	runBatchMode bool
	runWatch     bool
)

func buildEngine(ws string) (*engine.Engine, *store.Store, error) {
	s, err := openStore(ws)
	if err != nil {
		return nil, nil, err
	}
	sctx, err := openSession(ws)
	if err != nil {
		return nil, nil, err
	}
	br := openBridge(s, sctx)

	if runBatchMode {
		return engine.New(s, sctx, nil, openCoordinator(), nil, br, cfg, log, tracker, engine.ModeBatch), s, nil
	}
	return engine.New(s, sctx, openGateway(), nil, nil, br, cfg, log, tracker, engine.ModeSequential), s, nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drain the ready queue, dispatching every directive until none remain",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, s, err := buildEngine(resolveWorkspace())
		if err != nil {
			return err
		}

		if runWatch {
			return runWatching(e, s)
		}

		if err := e.Run(context.Background()); err != nil {
			return fmt.Errorf("run: %w", err)
		}
		return nil
	},
}

// runWatching keeps the engine alive, triggering a pass whenever new
// directives land in new/ instead of polling, until interrupted.
func runWatching(e *engine.Engine, s *store.Store) error {
	w, err := engine.NewWatcher(e, filepath.Join(s.Root(), store.FolderNew), 0)
	if err != nil {
		return fmt.Errorf("run --watch: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := e.Run(ctx); err != nil {
		return fmt.Errorf("run --watch: initial drain: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("run --watch: %w", err)
	}
	defer w.Stop()

	<-ctx.Done()
	return nil
}

var runSingleCmd = &cobra.Command{
	Use:   "run-single",
	Short: "Dispatch exactly one pass over the ready queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, _, err := buildEngine(resolveWorkspace())
		if err != nil {
			return err
		}
		did, err := e.RunSingle(context.Background())
		if err != nil {
			return fmt.Errorf("run-single: %w", err)
		}
		if !did {
			if jsonOutput {
				fmt.Println(`{"work_found": false}`)
			} else {
				fmt.Println("no ready work")
			}
			return nil
		}
		if jsonOutput {
			fmt.Println(`{"work_found": true}`)
		} else {
			fmt.Println("processed one directive")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runBatchMode, "batch", false, "Process the ready queue as one provider batch round")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Stay resident, triggering a pass whenever new/ changes instead of exiting once drained")
	runSingleCmd.Flags().BoolVar(&runBatchMode, "batch", false, "Process the ready queue as one provider batch round")
}
