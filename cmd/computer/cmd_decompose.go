package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/computer-project/computer/internal/collab"
	"github.com/computer-project/computer/internal/decomposer"
)

var (
	decomposePlatform string
	decomposeModel    string
)

var decomposeCmd = &cobra.Command{
	Use:   "decompose [prompt]",
	Short: "Split a free-form prompt into a chain of directives in new/",
	Args:  cobra.ExactArgs(1),
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

		platform := decomposePlatform
		if platform == "" {
			platform = cfg.DefaultPlatform
		}
		model := decomposeModel
		if model == "" {
			model = cfg.DefaultModel
		}

		d := decomposer.New(collab.NewDefaultSanitizer(), log, nil)
		chain, err := d.Decompose(context.Background(), decomposer.Request{
			Prompt:    args[0],
			Platform:  platform,
			Model:     model,
			SessionID: sctx.SessionID,
		})
		if err != nil {
			return fmt.Errorf("decompose: %w", err)
		}

		for _, directive := range chain {
			if err := s.WriteNew(directive); err != nil {
				return fmt.Errorf("decompose: write %s: %w", directive.Header.ID, err)
			}
			log.DirectiveCreated(directive.Header.ID, directive.Header.Slug, directive.Header.Platform, directive.Header.Model)
		}

		if jsonOutput {
			fmt.Printf("{\"directives_created\": %d}\n", len(chain))
		} else {
			fmt.Printf("wrote %d directive(s) to new/\n", len(chain))
		}
		return nil
	},
}

func init() {
	decomposeCmd.Flags().StringVar(&decomposePlatform, "platform", "", "Provider platform override")
	decomposeCmd.Flags().StringVar(&decomposeModel, "model", "", "Model override")
}
