// Package main implements the computer CLI: the command-line surface
// over the directive lifecycle engine (decompose, run, run-single,
// bridge sync/scan, status). Entry point and global flags live here;
// each subcommand's implementation is split into its own cmd_*.go file,
// following the teacher's cmd/nerd layout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/computer-project/computer/internal/config"
	"github.com/computer-project/computer/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
	workspace  string

	cfg     *config.Config
	log     *logging.Logger
	zl      *zap.Logger
	tracker *logging.PerformanceTracker
)

var rootCmd = &cobra.Command{
	Use:   "computer",
	Short: "computer - a file-system-backed directive pipeline",
	Long: `computer turns free-form prompts into a queue of executable
directives, runs them against remote LLM providers with retry and batch
semantics, and moves artifacts between lifecycle folders as they
complete.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		built, err := zcfg.Build()
		if err != nil {
			return fmt.Errorf("initialize zap logger: %w", err)
		}
		zl = built

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}

		loaded, warnings, err := config.Load(configPath(ws))
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		for _, w := range warnings {
			zl.Warn(w)
		}

		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		built2, err := logging.New(logging.Config{Level: level, File: cfg.LogFile, JSON: jsonOutput})
		if err != nil {
			return fmt.Errorf("initialize logging: %w", err)
		}
		log = built2
		tracker = logging.NewPerformanceTracker()

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if tracker != nil {
			tracker.LogSummary(log)
		}
		if zl != nil {
			_ = zl.Sync()
		}
		if log != nil {
			_ = log.Sync()
		}
	},
}

func configPath(workspaceDir string) string {
	return workspaceDir + "/computer.yaml"
}

func directivesRoot(workspaceDir string) string {
	return workspaceDir + "/directives"
}

func resolveWorkspace() string {
	if workspace != "" {
		return workspace
	}
	ws, _ := os.Getwd()
	return ws
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit structured JSON output")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")

	rootCmd.AddCommand(decomposeCmd, runCmd, runSingleCmd, bridgeSyncCmd, bridgeScanCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
