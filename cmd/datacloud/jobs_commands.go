package main

import (
	"fmt"

	"github.com/natserract/datacloud/pkg/datacloud"
	"github.com/natserract/datacloud/pkg/ledger"
	"github.com/spf13/cobra"
)

func newListActiveJobsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list_active_jobs",
		Short: `Show jobs with status "Open,UploadComplete,InProgress"`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListJobs(cmd, ctx, datacloud.ActiveJobStates)
		},
	}
}

func newListAllJobsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list_all_jobs",
		Short: "Show all jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListJobs(cmd, ctx, nil)
		},
	}
}

func runListJobs(cmd *cobra.Command, ctx *commandContext, states []string) error {
	client, err := ctx.ensureClient()
	if err != nil {
		return err
	}

	list, err := client.ListJobs(cmd.Context(), datacloud.ListJobsParams{
		Limit:  50,
		States: states,
	})
	if err != nil {
		return err
	}

	if len(list.Data) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderJobsTable(list.Data))
	return nil
}

func newJobInfoCommand(ctx *commandContext) *cobra.Command {
	var jobID string

	cmd := &cobra.Command{
		Use:   "job_info",
		Short: "Show detailed information for the specified job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}

			job, err := client.JobInfo(cmd.Context(), jobID)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderJobDetail(job))
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "job_id", "", "The job id returned in the response body from the Create Job request")
	_ = cmd.MarkFlagRequired("job_id")

	return cmd
}

func newAbortJobCommand(ctx *commandContext) *cobra.Command {
	var jobID string

	cmd := &cobra.Command{
		Use:   "abort_job",
		Short: `Terminate the specified job with state "Aborted"`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}

			job, err := client.AbortJob(cmd.Context(), jobID)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Job %s aborted (state: %s)\n", jobID, job.State)
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "job_id", "", "The job id returned in the response body from the Create Job request")
	_ = cmd.MarkFlagRequired("job_id")

	return cmd
}

func newReconcileJobsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile_jobs",
		Short: "Refresh ledger state for jobs not yet in a terminal state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}

			db, err := ledger.New(ledger.NewConfig(), ctx.logger)
			if err != nil {
				return fmt.Errorf("failed to connect to ledger database: %w", err)
			}
			defer db.Close()

			store, err := ledger.NewStore(cmd.Context(), db, ctx.logger)
			if err != nil {
				return err
			}

			report, err := store.Reconcile(cmd.Context(), client)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Reconciled %d jobs: %d updated, %d failed\n",
				report.Checked, report.Updated, report.Failed)
			return nil
		},
	}
}
