package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gamecre8/internal/bootstrap"
	"gamecre8/internal/domain"
)

func newJobCmd() *cobra.Command {
	var requeue bool
	cmd := &cobra.Command{
		Use:   "job <id>",
		Short: "Show a job, or requeue it when it failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, s *bootstrap.Services) error {
				var (
					job *domain.PromptJob
					err error
				)
				if requeue {
					job, err = s.Queue.Requeue(ctx, args[0])
				} else {
					job, err = s.Queue.Get(ctx, args[0])
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					return printJSON(out, job)
				}
				printJob(cmd, job)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&requeue, "requeue", false, "enqueue the prompt of a failed job again")
	return cmd
}

func printJob(cmd *cobra.Command, job *domain.PromptJob) {
	out := cmd.OutOrStdout()
	c := cyan
	switch job.Status {
	case domain.JobStatusDone:
		c = green
	case domain.JobStatusError:
		c = red
	}
	fmt.Fprintf(out, "%s  ", job.ID)
	c.Fprintf(out, "%s\n", job.Status)
	fmt.Fprintf(out, "  prompt   %q\n", job.Prompt)
	fmt.Fprintf(out, "  created  %s\n", job.CreatedAt.Format("2006-01-02 15:04:05Z07:00"))
	if job.ResultRef != nil {
		fmt.Fprintf(out, "  result   %s\n", *job.ResultRef)
	}
	if job.ErrorMessage != nil {
		fmt.Fprintf(out, "  error    %s\n", *job.ErrorMessage)
	}
}
