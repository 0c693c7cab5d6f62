package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"followup-cli/internal/api"
)

func newDealersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dealers",
		Short: "Print the operator's dealer list",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			if cfg.Email == "" {
				return fmt.Errorf("no operator email: set email in config or pass --email")
			}
			client := &api.Client{BaseURL: cfg.BaseURL, Token: cfg.Token}
			ctx, cancel := context.WithTimeout(cmd.Context(), api.DefaultTimeout)
			defer cancel()
			dealers, err := client.Dealers(ctx, cfg.Email)
			if err != nil {
				return err
			}
			for _, d := range dealers {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}
}
