package main

import (
	"fmt"
	"strings"

	"github.com/Noofbiz/knnboost/datasets"

	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var head int
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the shape and first rows of a matrix written by enrich",
		Long: `inspect reads a .csv, .gob, .npy or .tensor matrix file and prints its
format, shape, column names (when the format keeps them) and first rows.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			m, cols, err := datasets.ReadMatrixFile(path)
			if err != nil {
				return err
			}
			r, c := m.Dims()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "format\t%s\n", datasets.FormatOf(path))
			fmt.Fprintf(out, "shape\t[%d, %d]\n", r, c)
			if cols != nil {
				fmt.Fprintf(out, "columns\t%s\n", strings.Join(cols, ","))
			}
			vals := make([]string, c)
			for i := 0; i < min(head, r); i++ {
				for j := range vals {
					vals[j] = fmt.Sprintf("%.6g", m.At(i, j))
				}
				fmt.Fprintf(out, "%d\t%s\n", i, strings.Join(vals, "\t"))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&head, "head", "n", 5, "number of rows to print")
	return cmd
}
