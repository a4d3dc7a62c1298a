package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			ws, closeFn, err := openWorkspace(cmd, false)
			if err != nil {
				return err
			}
			defer closeFn()

			items, err := ws.History(cmd.Context())
			if err != nil {
				return err
			}
			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), items)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tSCORE\tCLAUSES\tPERSONA\tCREATED")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", it.ID, it.DocumentTitle, it.OverallScore, it.ClauseCount, it.Persona, it.CreatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&format, "format", formatText, "output format: text or json")
	return cmd
}
