package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"gamearbiter/internal/titles"
)

func newScoreCommand() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:         "score <title-a> <title-b>",
		Short:       "Show how two titles compare under the fuzzy matcher",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b := titles.Explain(args[0], args[1])
			if jsonOut {
				return writeJSON(cmd, b)
			}
			penalized := "no"
			if b.Penalized {
				penalized = "yes"
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Field", "Value"},
				[][]string{
					{"Normalized A", b.NormalizedA},
					{"Normalized B", b.NormalizedB},
					{"Base", formatScore(b.Base)},
					{"Series", formatScore(b.Series)},
					{"Similarity", formatScore(b.Similarity)},
					{"Base penalty", penalized},
					{"Total", strconv.Itoa(b.Total)},
				},
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the breakdown as JSON")
	return cmd
}

func newNormalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "normalize <title>...",
		Short:       "Print the canonical form of each title",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, title := range args {
				fmt.Fprintln(out, titles.Normalize(title))
			}
			return nil
		},
	}
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
