package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bnema/zalo-accounts/internal/config"
	"github.com/bnema/zalo-accounts/internal/logger"
)

func Execute() error {
	return newRootCmd().Execute()
}

// cliState carries what the persistent pre-run resolves for every command.
type cliState struct {
	configPath string
	logLevel   string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	state := &cliState{}

	rootCmd := &cobra.Command{
		Use:           "za",
		Short:         "za: run and drive multi-account messaging sessions",
		Long:          "za attaches messaging-platform accounts through QR login and exposes send, friend, group and bulk operations over HTTP and a websocket event stream.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return state.load(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&state.configPath, "config", "", "Path to za.toml (default: ./za.toml or ~/.config/za/za.toml)")
	rootCmd.PersistentFlags().StringVar(&state.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(state),
		newLoginCmd(state),
		newAccountsCmd(state),
		newJobsCmd(state),
	)

	return rootCmd
}

func (s *cliState) load(_ *cobra.Command) error {
	cfg, err := config.Load(viper.New(), s.configPath)
	if err != nil {
		return err
	}
	if s.logLevel != "" {
		cfg.Log.Level = s.logLevel
	}
	if _, err := logger.Init(cfg.Log); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	s.cfg = cfg
	return nil
}
