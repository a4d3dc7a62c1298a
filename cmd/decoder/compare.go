package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"contract-decoder/internal/contract"
	"contract-decoder/internal/extract"
)

func newCompareCmd() *cobra.Command {
	var (
		format string
		accept bool
	)
	cmd := &cobra.Command{
		Use:   "compare <fileA> <fileB>",
		Short: "Summarize the clause-level differences between two documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if !accept {
				return errDisclaimer
			}
			ws, closeFn, err := openWorkspace(cmd, true)
			if err != nil {
				return err
			}
			defer closeFn()

			docs := make([]string, len(args))
			for i, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				if docs[i], err = extract.ExtractText(cmd.Context(), data, "", path); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}

			ws.AcceptDisclaimer()
			s, err := ws.Compare(cmd.Context(), docs[0], docs[1])
			if err != nil {
				return err
			}
			if s.Comparison.Result == nil {
				return fmt.Errorf("comparison produced no result")
			}
			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), s.Comparison.Result)
			}
			renderComparison(cmd.OutOrStdout(), *s.Comparison.Result)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", formatText, "output format: text or json")
	cmd.Flags().BoolVarP(&accept, "yes", "y", false, "accept that results are not legal advice")
	return cmd
}

func renderComparison(w io.Writer, r contract.ComparisonResult) {
	fmt.Fprintf(w, "Added: %d  Removed: %d  Modified: %d\n", r.Summary.Added, r.Summary.Removed, r.Summary.Modified)
	for _, c := range r.Clauses {
		if c.ChangeType == contract.ChangeUnchanged {
			continue
		}
		fmt.Fprintf(w, "\n%s", c.ChangeType)
		if c.Summary != "" {
			fmt.Fprintf(w, ": %s", c.Summary)
		}
		fmt.Fprintln(w)
		if c.TextA != "" {
			fmt.Fprintf(w, "  - %s\n", c.TextA)
		}
		if c.TextB != "" {
			fmt.Fprintf(w, "  + %s\n", c.TextB)
		}
	}
}
