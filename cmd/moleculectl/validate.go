package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"molecule/internal/bootstrap"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <seed.yaml>...",
		Short: "Parse and apply seed files to an in-memory registry",
		Long: `Validate checks each seed file's syntax, then applies it to a scratch
registry so unresolvable module references and bad expressions are reported.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				seed, err := bootstrap.Load(path)
				if err == nil {
					_, err = newEngine(cmd.Context()).apply(seed)
				}
				if err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%d lists, %d expressions, %d policies)\n",
					path, len(seed.Lists), len(seed.Expressions), len(seed.Policies))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d seed files invalid", failed, len(args))
			}
			return nil
		},
	}
}
