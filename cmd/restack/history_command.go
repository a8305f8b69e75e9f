package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"restack/internal/api"
)

func newHistoryCommand(cmdCtx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transfer requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.HistoryResponse
			if err := cmdCtx.getJSON(fmt.Sprintf("/api/transfers/history?limit=%d", limit), &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(resp.Records) == 0 {
				fmt.Fprintln(out, "No transfers recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(resp.Records))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of records to show")
	return cmd
}

func renderHistoryTable(records []api.HistoryRecord) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Started", "Operation", "Items", "Completed", "Failed", "Bytes"})

	for _, rec := range records {
		tw.AppendRow(table.Row{
			rec.StartedAt,
			rec.Operation,
			rec.Items,
			rec.Completed,
			rec.Failed,
			humanize.Bytes(uint64(rec.BytesCopied)),
		})
	}

	// Numeric columns read better ragged-right.
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})

	return tw.Render()
}
