package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"followup-cli/internal/store"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recently dispatched outcomes from the local log",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			dispatches, err := (store.DispatchLog{}).Recent(ctx, limit)
			if err != nil {
				return err
			}
			for _, d := range dispatches {
				status := "ok"
				if d.Err != "" {
					status = "failed: " + d.Err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  row=%d  %s  call=%d  %s\n",
					d.At.Local().Format("2006-01-02 15:04:05"),
					d.Record.RowIndex, d.Record.Outcome, d.Record.CallN, status)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "max entries to print (0 = all)")
	return cmd
}
