package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ika-labs/ika/internal/config"
	"github.com/ika-labs/ika/internal/console"
	"github.com/ika-labs/ika/internal/ledger"
	"github.com/ika-labs/ika/internal/manifest"
	"github.com/ika-labs/ika/internal/platform"
	"github.com/ika-labs/ika/internal/probe"
	"github.com/ika-labs/ika/internal/report"
	"github.com/ika-labs/ika/internal/runner"
	"github.com/ika-labs/ika/internal/toolchain"
	"github.com/spf13/cobra"
)

var (
	doctorFix bool
	doctorDir string
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Restrict keystore permissions to owner only")
	doctorCmd.Flags().StringVarP(&doctorDir, "dir", "C", "", "Project directory (default: current directory)")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the toolchain and the current project",
	Long: `Run diagnostic checks: required programs and the sui version, Move.toml
validity, the test ledger and keystore, and whether the validator port is
already taken.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := doctorDir
		if dir == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}
			dir = cwd
		}

		d := &doctor{
			con:      con,
			runner:   newRunner(console.Discard()),
			settings: config.Current(),
			fix:      doctorFix,
		}
		d.runToolchainCheck(cmd.Context())
		d.runProjectCheck(dir)
		d.runLedgerCheck(dir)
		d.runPortCheck(cmd.Context())

		if d.failures > 0 {
			return fmt.Errorf("doctor found %d problem(s)", d.failures)
		}
		return nil
	},
}

type doctor struct {
	con      *console.Console
	runner   runner.Runner
	settings config.Settings
	fix      bool
	failures int
}

func (d *doctor) fail(format string, args ...interface{}) {
	d.failures++
	d.con.Status(console.StatusFail, format, args...)
}

func (d *doctor) runToolchainCheck(ctx context.Context) {
	d.con.Info("Toolchain check:")

	if d.checkBinary(d.settings.SuiBinary, true) {
		d.checkSuiVersion(ctx)
	}
	d.checkBinary(d.settings.NpmBinary, false)
	d.checkBinary(d.settings.GitBinary, false)
}

// checkBinary reports whether name is on PATH. A missing required program
// counts as a failure.
func (d *doctor) checkBinary(name string, required bool) bool {
	path, err := toolchain.LookupBinary(name)
	if err != nil {
		if required {
			d.fail("%s not found", name)
		} else {
			d.con.Status(console.StatusMiss, "%s not found", name)
		}
		return false
	}
	d.con.Status(console.StatusOK, "%s found at %s", name, path)
	return true
}

func (d *doctor) checkSuiVersion(ctx context.Context) {
	version, err := toolchain.Version(ctx, d.runner, d.settings.SuiBinary)
	if err != nil {
		d.con.Status(console.StatusWarn, "could not determine sui version: %v", err)
		return
	}

	minimum := d.settings.SuiMinVersion
	if minimum == "" {
		d.con.Status(console.StatusOK, "sui %s", version)
		return
	}
	ok, err := toolchain.SatisfiesMinimum(version, minimum)
	switch {
	case err != nil:
		d.con.Status(console.StatusWarn, "sui %s: %v", version, err)
	case !ok:
		d.fail("sui %s is older than the configured minimum %s", version, minimum)
	default:
		d.con.Status(console.StatusOK, "sui %s (minimum %s)", version, minimum)
	}
}

func (d *doctor) runProjectCheck(dir string) {
	d.con.Info("Project check:")

	if !manifest.Exists(dir) {
		d.con.Status(console.StatusInfo, "no %s in %s", manifest.FileName, dir)
		return
	}

	path := manifest.Path(dir)
	result, err := manifest.ValidateFile(path)
	if err != nil {
		d.fail("cannot read %s: %v", manifest.FileName, err)
		return
	}
	if !result.Valid {
		for _, issue := range result.Issues {
			if issue.Path != "" {
				d.fail("%s %s: %s", manifest.FileName, issue.Path, issue.Message)
			} else {
				d.fail("%s: %s", manifest.FileName, issue.Message)
			}
		}
		return
	}

	m, err := manifest.ParseFile(path)
	if err != nil {
		d.fail("%v", err)
		return
	}
	d.con.Status(console.StatusOK, "%s is valid (package %s)", manifest.FileName, m.Package.Name)
	if line, ok := m.Command(manifest.CommandTest); ok {
		d.con.Status(console.StatusInfo, "end-to-end test command: %s", line)
	}

	if rep, err := report.Load(dir); err == nil {
		d.con.Status(console.StatusInfo, "last run %s %s at %s", rep.ID, rep.Status, rep.FinishedAt.Format(time.RFC3339))
	}
}

func (d *doctor) runLedgerCheck(dir string) {
	d.con.Info("Ledger check:")

	ld := ledger.New(dir, d.settings.SuiBinary)
	if !ld.Exists() {
		d.con.Status(console.StatusInfo, "no test ledger yet; it is created on the first test run")
		return
	}

	info, err := ld.Network()
	if err != nil {
		d.fail("%v", err)
	} else {
		d.con.Status(console.StatusOK, "%s: %d validator(s), %d account key(s)", ledger.NetworkConfigFile, info.Validators, info.AccountKeys)
	}

	keystore, err := ld.ReadKeystore()
	if err != nil {
		d.fail("%v", err)
		return
	}
	if _, err := ledger.ParseKeystore([]byte(keystore)); err != nil {
		d.fail("%v", err)
		return
	}

	mode, err := ld.KeystoreMode()
	if err != nil {
		d.fail("cannot stat keystore: %v", err)
		return
	}
	excess := platform.ExcessPermissions(mode, ledger.KeystorePerm)
	if excess == 0 {
		d.con.Status(console.StatusOK, "%s permissions %o", ledger.KeystoreFile, mode)
		return
	}
	if !d.fix {
		d.con.Status(console.StatusWarn, "%s is readable by others (%o); run with --fix", ledger.KeystoreFile, mode)
		return
	}
	if err := platform.Chmod(ld.KeystorePath(), ledger.KeystorePerm); err != nil {
		d.fail("chmod %s: %v", ld.KeystorePath(), err)
		return
	}
	d.con.Status(console.StatusFix, "%s permissions set to %o", ledger.KeystoreFile, ledger.KeystorePerm)
}

// runPortCheck warns when something already listens on the validator
// address, usually a validator left over from an interrupted run.
func (d *doctor) runPortCheck(ctx context.Context) {
	d.con.Info("Network check:")

	p := &probe.Prober{Interval: 500 * time.Millisecond}
	result, err := p.Probe(ctx, d.settings.ValidatorAddress, 0)
	if err != nil {
		d.con.Status(console.StatusWarn, "could not check %s: %v", d.settings.ValidatorAddress, err)
		return
	}
	if result == probe.Ready {
		d.con.Status(console.StatusWarn, "%s is already accepting connections; a validator may still be running", d.settings.ValidatorAddress)
		return
	}
	d.con.Status(console.StatusOK, "%s is free", d.settings.ValidatorAddress)
}
