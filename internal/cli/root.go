// Package cli wires the cobra command tree. Running the binary with no
// subcommand starts the interactive TUI; the subcommands expose the same
// operations for scripts.
package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"followup-cli/internal/store"
	"followup-cli/internal/tui"
)

var (
	flagBaseURL string
	flagEmail   string
	flagToken   string
)

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// resolveConfig merges flags over FOLLOWUP_* env vars over the config file.
func resolveConfig() (*store.GlobalConfig, error) {
	cfg, err := store.LoadConfig()
	if err != nil {
		return nil, err
	}
	cfg.BaseURL = envOr("FOLLOWUP_BASE_URL", cfg.BaseURL)
	cfg.Email = envOr("FOLLOWUP_EMAIL", cfg.Email)
	cfg.Token = envOr("FOLLOWUP_TOKEN", cfg.Token)
	if strings.TrimSpace(flagBaseURL) != "" {
		cfg.BaseURL = strings.TrimSpace(flagBaseURL)
	}
	if strings.TrimSpace(flagEmail) != "" {
		cfg.Email = strings.TrimSpace(flagEmail)
	}
	if strings.TrimSpace(flagToken) != "" {
		cfg.Token = strings.TrimSpace(flagToken)
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "followup",
		Short:         "Track and record scheduled client follow-up calls",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			return tui.Run(cfg)
		},
	}
	root.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "data service URL (env FOLLOWUP_BASE_URL)")
	root.PersistentFlags().StringVar(&flagEmail, "email", "", "operator email (env FOLLOWUP_EMAIL)")
	root.PersistentFlags().StringVar(&flagToken, "token", "", "service credential (env FOLLOWUP_TOKEN)")

	root.AddCommand(newDueCmd())
	root.AddCommand(newMarkCmd())
	root.AddCommand(newDealersCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newQuickCmd())
	return root
}

func newQuickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quick",
		Short: "Open the quick order-recording flow directly",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			return tui.RunQuick(cfg)
		},
	}
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Stderr.WriteString("error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
