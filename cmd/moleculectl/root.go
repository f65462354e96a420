package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "moleculectl",
		Short:         "Inspect Molecule seed files and evaluate addresses offline",
		SilenceUsage: true,
	}
	root.AddCommand(newValidateCmd(), newCheckCmd())
	return root
}
