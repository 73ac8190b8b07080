package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/computer-project/computer/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report lifecycle folder counts and this run's performance totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws := resolveWorkspace()
		counts, err := folderCounts(directivesRoot(ws))
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		metrics := tracker.Snapshot()

		if jsonOutput {
			data, err := json.Marshal(map[string]any{"folders": counts, "metrics": metrics})
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		for _, folder := range []string{store.FolderNew, store.FolderProcessing, store.FolderSuccess, store.FolderFailed, store.FolderSlow, store.FolderExemplar} {
			fmt.Printf("%-12s %d\n", folder, counts[folder])
		}
		fmt.Printf("directives processed: %d (succeeded %d, failed %d)\n", metrics.DirectivesProcessed, metrics.DirectivesSucceeded, metrics.DirectivesFailed)
		return nil
	},
}

// folderCounts counts non-output-artifact directive files in each
// lifecycle folder, for a quick queue depth snapshot.
func folderCounts(root string) (map[string]int, error) {
	folders := []string{store.FolderNew, store.FolderProcessing, store.FolderSuccess, store.FolderFailed, store.FolderSlow, store.FolderExemplar}
	out := make(map[string]int, len(folders))
	for _, folder := range folders {
		entries, err := os.ReadDir(filepath.Join(root, folder))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		n := 0
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ".md" && !store.IsOutputArtifact(e.Name()) {
				n++
			}
		}
		out[folder] = n
	}
	return out, nil
}
