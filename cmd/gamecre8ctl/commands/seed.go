package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gamecre8/internal/bootstrap"
	"gamecre8/internal/domain"
	"gamecre8/internal/seed"
)

func newSeedCmd() *cobra.Command {
	var (
		demo bool
		file string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Enqueue a prompt list from the asset store, a local file or the demo set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if demo && file != "" {
				return errors.New("--demo and --file are mutually exclusive")
			}
			return withServices(cmd, func(ctx context.Context, s *bootstrap.Services) error {
				prompts, err := loadPrompts(ctx, s, demo, file)
				out := cmd.OutOrStdout()
				if errors.Is(err, domain.ErrNotFound) {
					yellow.Fprintf(out, "no prompt list at %s\n", s.Seeds.Key())
					return nil
				}
				if err != nil {
					return err
				}
				res, err := s.Queue.EnqueueMany(ctx, prompts)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(out, map[string]int{"enqueued": len(res.Enqueued), "skipped": res.Skipped})
				}
				green.Fprintf(out, "enqueued %d", len(res.Enqueued))
				fmt.Fprintf(out, ", skipped %d\n", res.Skipped)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "use the built in demo prompts")
	cmd.Flags().StringVar(&file, "file", "", "read the prompt list from a local JSON or YAML file")
	return cmd
}

func loadPrompts(ctx context.Context, s *bootstrap.Services, demo bool, file string) ([]string, error) {
	switch {
	case demo:
		return seed.Default(), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		return seed.Parse(data)
	default:
		return s.Seeds.Load(ctx)
	}
}
