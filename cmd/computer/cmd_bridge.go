package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/computer-project/computer/internal/bridge"
)

var (
	bridgeTodosFile string
	bridgePlatform  string
	bridgeModel     string
)

// bridgeSyncCmd forwards an external to-do list (read as a JSON array
// from --todos) into one directive per to-do, matching
// claude_todos_to_directives.
var bridgeSyncCmd = &cobra.Command{
	Use:   "bridge-sync",
	Short: "Forward an external to-do list into a chain of directives",
	RunE: func(cmd *cobra.Command, args []string) error {
		if bridgeTodosFile == "" {
			return fmt.Errorf("bridge-sync: --todos is required")
		}
		todos, err := readTodosFile(bridgeTodosFile)
		if err != nil {
			return fmt.Errorf("bridge-sync: %w", err)
		}

		ws := resolveWorkspace()
		s, err := openStore(ws)
		if err != nil {
			return err
		}
		sctx, err := openSession(ws)
		if err != nil {
			return err
		}
		br := openBridge(s, sctx)

		platform := bridgePlatform
		if platform == "" {
			platform = cfg.DefaultPlatform
		}
		model := bridgeModel
		if model == "" {
			model = cfg.DefaultModel
		}

		chain, err := br.Forward(todos, platform, model)
		if err != nil {
			return fmt.Errorf("bridge-sync: %w", err)
		}
		for _, d := range chain {
			if err := s.WriteNew(d); err != nil {
				return fmt.Errorf("bridge-sync: write %s: %w", d.Header.ID, err)
			}
		}

		if jsonOutput {
			fmt.Printf("{\"directives_created\": %d}\n", len(chain))
		} else {
			fmt.Printf("forwarded %d to-do(s) into new/\n", len(chain))
		}
		return nil
	},
}

// bridgeScanCmd projects every directive's lifecycle state back onto an
// external to-do list, matching the bridge's folder-to-status scan.
var bridgeScanCmd = &cobra.Command{
	Use:   "bridge-scan",
	Short: "Project every directive's lifecycle state as an external to-do list",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws := resolveWorkspace()
		s, err := openStore(ws)
		if err != nil {
			return err
		}
		sctx, err := openSession(ws)
		if err != nil {
			return err
		}
		br := openBridge(s, sctx)

		todos, err := br.Scan()
		if err != nil {
			return fmt.Errorf("bridge-scan: %w", err)
		}
		return printTodos(todos)
	},
}

func readTodosFile(path string) ([]bridge.TodoItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var todos []bridge.TodoItem
	if err := json.Unmarshal(data, &todos); err != nil {
		return nil, fmt.Errorf("parse todos file: %w", err)
	}
	return todos, nil
}

func printTodos(todos []bridge.TodoItem) error {
	if jsonOutput {
		data, err := json.Marshal(todos)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	for _, t := range todos {
		fmt.Printf("[%s] %s (%s)\n", t.Status, t.Content, t.ID)
	}
	return nil
}

func init() {
	bridgeSyncCmd.Flags().StringVar(&bridgeTodosFile, "todos", "", "Path to a JSON array of to-do items")
	bridgeSyncCmd.Flags().StringVar(&bridgePlatform, "platform", "", "Provider platform override")
	bridgeSyncCmd.Flags().StringVar(&bridgeModel, "model", "", "Model override")
}
