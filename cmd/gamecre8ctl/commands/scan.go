package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gamecre8/internal/bootstrap"
)

func newScanCmd() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the asset store and report what a game can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, s *bootstrap.Services) error {
				m, err := s.Manifests.Build(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					return printJSON(out, m)
				}
				sprites, backgrounds := m.Counts()
				c := green
				if sprites == 0 || backgrounds == 0 {
					c = yellow
				}
				c.Fprintf(out, "%d sprites, %d backgrounds\n", sprites, backgrounds)
				if list {
					for _, r := range m.Sprites {
						fmt.Fprintf(out, "  sprite      %s  %v\n", r.Path, r.Tags)
					}
					for _, r := range m.Backgrounds {
						fmt.Fprintf(out, "  background  %s  %v\n", r.Path, r.Tags)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print every asset with its tags")
	return cmd
}
