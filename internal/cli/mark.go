package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"followup-cli/internal/api"
	"followup-cli/internal/model"
	"followup-cli/internal/store"
)

func newMarkCmd() *cobra.Command {
	var (
		row        int
		outcome    string
		remark     string
		callN      int
		planned    string
		scheduleAt string
		date       string
	)
	cmd := &cobra.Command{
		Use:   "mark",
		Short: "Record a follow-up outcome non-interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			o, err := model.ParseOutcome(outcome)
			if err != nil {
				return err
			}
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}
			rec := model.OutcomeRecord{
				RowIndex:    row,
				Date:        date,
				Outcome:     o,
				Remark:      remark,
				CallN:       callN,
				PlannedDate: planned,
			}
			if scheduleAt != "" {
				when, err := time.ParseInLocation("2006-01-02 15:04", scheduleAt, time.Local)
				if err != nil {
					return fmt.Errorf("bad --schedule-at (want YYYY-MM-DD hh:mm): %w", err)
				}
				rec.ScheduleAt = &when
			}
			if err := rec.Validate(); err != nil {
				return err
			}

			client := &api.Client{BaseURL: cfg.BaseURL, Token: cfg.Token}
			ctx, cancel := context.WithTimeout(cmd.Context(), api.DefaultTimeout)
			defer cancel()
			dispatchErr := client.Mark(ctx, rec)

			// The service never acknowledges writes, so the local log is
			// the only durable trace either way.
			logCtx, logCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer logCancel()
			if err := (store.DispatchLog{}).Append(logCtx, rec, dispatchErr); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: dispatch log: %v\n", err)
			}
			if dispatchErr != nil {
				return dispatchErr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dispatched %s for row %d\n", rec.Outcome, rec.RowIndex)
			return nil
		},
	}
	cmd.Flags().IntVar(&row, "row", 0, "target row index (required)")
	cmd.Flags().StringVar(&outcome, "outcome", "", "NR, SF or OR (required)")
	cmd.Flags().StringVar(&remark, "remark", "", "free-form remark")
	cmd.Flags().IntVar(&callN, "call", 0, "call number (0 = untracked)")
	cmd.Flags().StringVar(&planned, "planned-date", "", "planned call date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&scheduleAt, "schedule-at", "", "next follow-up instant, required for SF (YYYY-MM-DD hh:mm)")
	cmd.Flags().StringVar(&date, "date", "", "record date (default today)")
	_ = cmd.MarkFlagRequired("row")
	_ = cmd.MarkFlagRequired("outcome")
	return cmd
}
