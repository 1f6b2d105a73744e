package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCmd(state *cliState) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and websocket event stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := state.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}

			app, err := wireApp(cfg, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app.log.Info("starting za", "addr", cfg.Server.Addr, "gateway", cfg.Gateway.BaseURL, "cache", cfg.Cache.Backend)
			return app.server.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")

	return cmd
}
