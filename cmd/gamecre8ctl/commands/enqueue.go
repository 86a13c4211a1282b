package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gamecre8/internal/bootstrap"
	"gamecre8/internal/queue"
)

func newEnqueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <prompt> [prompt...]",
		Short: "Add prompts to the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, s *bootstrap.Services) error {
				results := make([]queue.EnqueueResult, 0, len(args))
				for _, p := range args {
					res, err := s.Queue.Enqueue(ctx, p)
					if err != nil {
						return fmt.Errorf("enqueue %q: %w", p, err)
					}
					results = append(results, res)
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					return printJSON(out, results)
				}
				for i, res := range results {
					if res.Skipped {
						yellow.Fprintf(out, "skipped  %q (already queued recently)\n", args[i])
						continue
					}
					green.Fprintf(out, "queued   %s  %q\n", res.Job.ID, res.Job.Prompt)
				}
				return nil
			})
		},
	}
}
