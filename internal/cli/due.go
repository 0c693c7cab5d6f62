package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"followup-cli/internal/api"
	"followup-cli/internal/window"
)

// dueItemOut is the scriptable view of one classified item.
type dueItemOut struct {
	RowIndex    int      `json:"rowIndex"`
	ClientName  string   `json:"clientName"`
	ActiveCalls []int    `json:"activeCalls"`
	Overdue     bool     `json:"overdue"`
	Visible     bool     `json:"visible"`
	Remaining   string   `json:"remaining,omitempty"`
	Calls       []string `json:"calls"`
}

func newDueCmd() *cobra.Command {
	var all bool
	var at string
	cmd := &cobra.Command{
		Use:   "due",
		Short: "Fetch, classify and print the current follow-up set as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			now := time.Now()
			if at != "" {
				now, err = time.ParseInLocation("2006-01-02 15:04", at, time.Local)
				if err != nil {
					return fmt.Errorf("bad --at (want YYYY-MM-DD hh:mm): %w", err)
				}
			}
			client := &api.Client{BaseURL: cfg.BaseURL, Token: cfg.Token}
			ctx, cancel := context.WithTimeout(cmd.Context(), api.DefaultTimeout)
			defer cancel()
			set, err := client.Due(ctx)
			if err != nil {
				return err
			}

			calc := window.Calc{ThirdBucketEnd: cfg.ThirdBucketEnd}
			cls := calc.Classify(set, now)

			var out []dueItemOut
			for _, ic := range cls.Items {
				if !ic.Visible && !all {
					continue
				}
				o := dueItemOut{
					RowIndex:   ic.Item.RowIndex,
					ClientName: ic.Item.ClientName,
					Overdue:    ic.Overdue,
					Visible:    ic.Visible,
				}
				for i, dc := range ic.Item.DueCalls {
					o.Calls = append(o.Calls, dc.CallDate)
					if ic.ActiveCalls[i] {
						o.ActiveCalls = append(o.ActiveCalls, dc.CallN)
					}
				}
				if ic.Item.SFFuture != nil && ic.Item.SFFuture.After(now) {
					o.Remaining = window.FormatRemaining(ic.Item.SFFuture.Sub(now))
				}
				out = append(out, o)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"today":   set.Today,
				"due":     cls.DueCount,
				"overdue": cls.OverdueCount,
				"items":   out,
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include hidden items (no active call, not overdue)")
	cmd.Flags().StringVar(&at, "at", "", "classify at this instant instead of now (YYYY-MM-DD hh:mm)")
	return cmd
}
