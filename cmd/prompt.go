package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/snapcard/internal/prompt"
)

func newPromptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "Print the prompt sent with every screenshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}

			base, err := prompt.LoadInstructions(cfg.Prompt.InstructionsPath)
			if err != nil {
				return err
			}
			var src prompt.ExampleSource
			if cfg.Prompt.ExamplesPath != "" {
				src = prompt.NewFileSource(cfg.Prompt.ExamplesPath)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), prompt.Build(base, src))
			return err
		},
	}
}
