package terminal

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/de-tools/revenue-atlas/pkg/runtime/terminal/commands"
	"github.com/de-tools/revenue-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/revenue-atlas/pkg/services/account"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Loader builds the explorer from the --config settings file.
type Loader func(ctx context.Context, settingsPath string) (account.Explorer, error)

// CLI represents the command-line interface
type CLI struct {
	loader   Loader
	logger   zerolog.Logger
	reporter *export.Reporter
	rootCmd  *cobra.Command

	settingsPath string
	profile      string
	verbose      bool

	once     sync.Once
	explorer account.Explorer
	err      error
}

// Options contain configuration for the CLI
type Options struct {
	Loader Loader
	Output io.Writer
	Logger *zerolog.Logger
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Loader == nil {
		opts.Loader = account.Load
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	cli := &CLI{
		loader:   opts.Loader,
		logger:   logger,
		reporter: export.NewReporter(opts.Output),
	}

	cli.rootCmd = cli.newRootCmd()
	cli.rootCmd.SetOut(opts.Output)
	return cli
}

func (cli *CLI) Execute() error {
	return cli.ExecuteContext(context.Background())
}

func (cli *CLI) ExecuteContext(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "revenue-atlas",
		Short:         "Clinic revenue aggregation over the Biodata dashboard API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := zerolog.WarnLevel
			if cli.verbose {
				level = zerolog.DebugLevel
			}
			logger := cli.logger.Level(level)
			cmd.SetContext(logger.WithContext(cmd.Context()))
		},
	}

	cmd.PersistentFlags().StringVarP(&cli.settingsPath, "config", "c", "",
		"Path to a settings file (yaml, json or toml); REVENUE_ATLAS_* env vars apply either way")
	cmd.PersistentFlags().StringVarP(&cli.profile, "profile", "p", "",
		"Credential profile (default from settings, usually DEFAULT)")
	cmd.PersistentFlags().BoolVarP(&cli.verbose, "verbose", "v", false, "Log upstream calls")

	cmd.AddCommand(commands.NewSeriesCmd(cli.getExplorer, &cli.profile, cli.reporter))
	cmd.AddCommand(commands.NewBreakdownCmd(cli.getExplorer, &cli.profile, cli.reporter))
	cmd.AddCommand(commands.NewReportsCmd(cli.getExplorer, cli.reporter))
	cmd.AddCommand(commands.NewProfilesCmd(cli.getExplorer))

	return cmd
}

func (cli *CLI) getExplorer(ctx context.Context) (account.Explorer, error) {
	cli.once.Do(func() {
		cli.explorer, cli.err = cli.loader(ctx, cli.settingsPath)
	})
	return cli.explorer, cli.err
}
