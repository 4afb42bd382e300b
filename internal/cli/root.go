// Package cli provides the headless command-line interface for querydesk.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"querydesk/internal/app"
	"querydesk/internal/config"
	"querydesk/internal/logger"
)

type rootOptions struct {
	cfgFile string
}

// NewRootCmd creates and returns the root command.
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "querydesk",
		Short: "QueryDesk - saved connections, ad-hoc SQL and query history",
		Long: `QueryDesk keeps encrypted connection profiles for Postgres, MySQL,
SQL Server, BigQuery and SQLite, runs statements against them and journals
every execution in a local history.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.cfgFile, "config", "", "config file (default: $HOME/.querydesk/config.yaml)")
	pf.String("data-dir", "", "directory holding the metadata database")
	pf.String("user", "", "acting user")
	pf.Bool("log-json", false, "log as JSON")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.Duration("connect-timeout", 0, "timeout for reaching a remote database")

	rootCmd.AddCommand(
		newExecCmd(opts),
		newConnectionsCmd(opts),
		newPinnedCmd(opts),
		newHistoryCmd(opts),
		newCatalogCmd(opts),
		newStatsCmd(opts),
		newLogsCmd(opts),
		newMigrateCmd(opts),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute(version string) error {
	rootCmd := NewRootCmd(version)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// load reads configuration. Flags override file and environment only when set.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.Load(o.cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.NewWithOutput(cfg.LogJSON, cfg.LogLevel, cmd.ErrOrStderr()), nil
}

// service opens the wired backend. The returned cleanup closes it.
func (o *rootOptions) service(cmd *cobra.Command) (*app.Service, func(), error) {
	cfg, log, err := o.load(cmd)
	if err != nil {
		return nil, nil, err
	}
	svc, err := app.Open(ctx(cmd), cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return svc, func() {
		if err := svc.Close(); err != nil {
			log.Warnw("close metadata store", "error", err)
		}
		_ = log.Sync()
	}, nil
}

func ctx(cmd *cobra.Command) context.Context {
	if c := cmd.Context(); c != nil {
		return c
	}
	return context.Background()
}
