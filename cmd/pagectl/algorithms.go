package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/pagekit/pgalloc"
)

func init() {
	rootCmd.AddCommand(newAlgorithmsCmd())
}

func newAlgorithmsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List registered allocation algorithms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlgorithms()
		},
	}
}

func runAlgorithms() error {
	names := pgalloc.Algorithms()
	if jsonOut {
		return printJSON(names)
	}
	for _, name := range names {
		printInfo("%s\n", name)
	}
	return nil
}
