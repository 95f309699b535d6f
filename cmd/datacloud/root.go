// Command datacloud provides utility commands for managing Salesforce Data
// Cloud bulk ingest jobs.
package main

import (
	"fmt"

	"github.com/natserract/datacloud/pkg/datacloud"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// commandContext carries the lazily-built client shared by all subcommands
type commandContext struct {
	logger *zap.Logger
	client datacloud.DataCloudClient
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

// ensureClient loads config and builds the Data Cloud client on first use
func (c *commandContext) ensureClient() (datacloud.DataCloudClient, error) {
	if c.client != nil {
		return c.client, nil
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	c.logger = logger

	cfg, err := datacloud.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	c.client = datacloud.NewClientWithLogger(cfg, logger)
	return c.client, nil
}

func (c *commandContext) sync() {
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func newRootCommand() *cobra.Command {
	ctx := newCommandContext()

	rootCmd := &cobra.Command{
		Use:           "datacloud",
		Short:         "Utility commands for the Salesforce Data Cloud API",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Default action mirrors list_active_jobs
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListJobs(cmd, ctx, datacloud.ActiveJobStates)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.sync()
		},
	}

	rootCmd.AddCommand(newListActiveJobsCommand(ctx))
	rootCmd.AddCommand(newListAllJobsCommand(ctx))
	rootCmd.AddCommand(newJobInfoCommand(ctx))
	rootCmd.AddCommand(newAbortJobCommand(ctx))
	rootCmd.AddCommand(newReconcileJobsCommand(ctx))

	return rootCmd
}
