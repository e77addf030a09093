package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/ika-labs/ika/internal/branding"
	"github.com/ika-labs/ika/internal/config"
	"github.com/ika-labs/ika/internal/console"
	"github.com/ika-labs/ika/internal/runner"
	"github.com/ika-labs/ika/internal/testrun"
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	verbose bool
	noColor bool

	// con is set for every command by the root PersistentPreRun.
	con *console.Console
)

// newRunner builds the runner used by commands; tests replace it.
var newRunner = func(c *console.Console) runner.Runner {
	return &runner.ExecRunner{Stdout: c.Out(), Stderr: c.ErrOut()}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` scaffolds Sui Move projects and runs their tests against a local
validator: Move unit tests first, then end-to-end tests with the test ledger's
keys and the compiled package handed to the project's test command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			console.DisableColor()
		}
		con = console.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), verbose)
		config.Load()
	},
}

// Execute runs the root command with build info injected via ldflags. Errors
// are printed once here.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	// Interrupts cancel the context, which stops any running test command and
	// the validator.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		c := con
		if c == nil {
			c = console.New(rootCmd.OutOrStdout(), rootCmd.ErrOrStderr(), false)
		}
		c.Error(err)
	}
	return err
}

// ExitCode returns the process exit status for an error from Execute. A test
// command that exited non-zero keeps its own status.
func ExitCode(err error) int {
	var exitErr *testrun.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if err != nil {
		return 1
	}
	return 0
}
