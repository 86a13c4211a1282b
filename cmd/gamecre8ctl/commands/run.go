package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gamecre8/internal/bootstrap"
	"gamecre8/internal/domain"
)

func newRunCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one pass over the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, s *bootstrap.Services) error {
				batch := n
				if batch <= 0 {
					batch = s.Config.RunnerBatchSize
				}
				report, err := s.Runner.RunPass(ctx, batch)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					return printJSON(out, report)
				}
				if report.Claimed == 0 {
					yellow.Fprintln(out, "queue empty")
					return nil
				}
				for _, res := range report.Results {
					if res.Status == domain.JobStatusDone {
						green.Fprintf(out, "done    %s  %s\n", res.JobID, res.Slug)
					} else {
						red.Fprintf(out, "failed  %s  %s\n", res.JobID, res.Error)
					}
				}
				fmt.Fprintf(out, "claimed %d, done %d, failed %d\n", report.Claimed, report.Done, report.Failed)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 0, "jobs to claim (defaults to RUNNER_BATCH_SIZE)")
	return cmd
}
