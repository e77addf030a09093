package cli

import (
	"fmt"
	"os"

	"github.com/ika-labs/ika/internal/config"
	"github.com/ika-labs/ika/internal/testrun"
	"github.com/spf13/cobra"
)

var (
	testSkipContract bool
	testSkipE2E      bool
	testClear        bool
	testDir          string
)

// newProber returns nil to use the orchestrator's TCP prober; tests replace it.
var newProber = func() testrun.Prober { return nil }

func init() {
	testCmd.Flags().BoolVar(&testSkipContract, "skip-contract", false, "Skip the Move unit tests")
	testCmd.Flags().BoolVar(&testSkipE2E, "skip-e2e", false, "Skip the end-to-end tests")
	testCmd.Flags().BoolVar(&testClear, "clear", false, "Delete the test ledger before running")
	testCmd.Flags().StringVarP(&testDir, "dir", "C", "", "Project directory (default: current directory)")
	rootCmd.AddCommand(testCmd)
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run Move unit tests and end-to-end tests",
	Long: `Run the project's tests against a local validator.

The test ledger is created with "sui genesis" on first use. Move unit tests
run with "sui move test". The end-to-end phase starts "sui start", waits for
the validator to accept connections, builds the package, and runs the [ika]
test command from Move.toml (default "npm test") with SUI_KEYSTORE and
SUI_BUILD set. The command exits with the status of the first failing test
command.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := testDir
		if dir == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}
			dir = cwd
		}

		o := &testrun.Orchestrator{
			Dir: dir,
			Options: testrun.Options{
				SkipContractTests:  testSkipContract,
				SkipE2ETests:       testSkipE2E,
				ClearPreviousState: testClear,
			},
			Settings: config.Current(),
			Runner:   newRunner(con),
			Prober:   newProber(),
			Console:  con,
		}
		_, err := o.Run(cmd.Context())
		return err
	},
}
