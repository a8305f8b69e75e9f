package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"restack/internal/api"
)

func newStatusCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.StatusResponse
			if err := cmdCtx.getJSON("/api/status", &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Running:   %s\n", yesNo(resp.Running))
			fmt.Fprintf(out, "PID:       %d\n", resp.PID)
			fmt.Fprintf(out, "Downloads: %s\n", resp.DownloadsDir)
			fmt.Fprintf(out, "Media:     %s\n", resp.MediaDir)
			if resp.HistoryCount > 0 {
				fmt.Fprintf(out, "History:   %d transfers\n", resp.HistoryCount)
			}
			return nil
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
