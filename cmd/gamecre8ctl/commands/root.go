package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"gamecre8/internal/bootstrap"
	"gamecre8/internal/infra"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// loadServices builds the service graph from the environment. Tests swap it.
var loadServices = func(ctx context.Context, logOut io.Writer) (*bootstrap.Services, error) {
	_ = godotenv.Load()
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := infra.NewLoggerTo(cfg.AppEnv, logOut).Level(zerolog.WarnLevel)
	return bootstrap.Build(ctx, cfg, logger)
}

var jsonOutput bool

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gamecre8ctl",
		Short: "Operate the gamecre8 prompt queue and asset store",
		Long: `gamecre8ctl talks to the same queue, asset store and game store as the
API, configured through the same environment variables (.env is loaded
when present).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print machine readable JSON")
	root.AddCommand(newScanCmd(), newEnqueueCmd(), newRunCmd(), newJobCmd(), newSeedCmd())
	return root
}

// Execute runs the CLI.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		red.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}

// SetVersion sets the string printed by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// withServices builds the services for one command invocation.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, s *bootstrap.Services) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := loadServices(ctx, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("load services: %w", err)
	}
	defer s.Close()
	return fn(ctx, s)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
