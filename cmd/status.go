package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	statusadapter "github.com/bnema/zalo-accounts/internal/adapters/render/status"
	"github.com/bnema/zalo-accounts/internal/domain"
)

var errRemoteNotFound = errors.New("not found")

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newAccountsCmd(state *cliState) *cobra.Command {
	var (
		server string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List accounts logged in on a running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if server == "" {
				server = state.cfg.Server.Addr
			}
			accounts, err := newAPIClient(server).accounts(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, accounts)
			}

			rendered, err := statusadapter.RenderAccounts(accounts, statusadapter.RenderOptions{Now: time.Now()})
			if err != nil {
				return fmt.Errorf("render accounts: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server URL or address (default: server.addr)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of the styled view")

	return cmd
}

func newJobsCmd(state *cliState) *cobra.Command {
	var (
		server      string
		asJSON      bool
		maxFailures int
	)

	cmd := &cobra.Command{
		Use:   "jobs <job-id>",
		Short: "Show the progress of a bulk job on a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if server == "" {
				server = state.cfg.Server.Addr
			}
			job, err := newAPIClient(server).job(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, errRemoteNotFound) {
					return fmt.Errorf("job %s: %w", args[0], domain.ErrJobNotFound)
				}
				return err
			}
			if asJSON {
				return writeJSON(cmd, job)
			}

			rendered, err := statusadapter.RenderJob(job, statusadapter.RenderOptions{Now: time.Now(), MaxFailures: maxFailures})
			if err != nil {
				return fmt.Errorf("render job: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server URL or address (default: server.addr)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of the styled view")
	cmd.Flags().IntVar(&maxFailures, "max-failures", 10, "How many failed targets to list")

	return cmd
}
