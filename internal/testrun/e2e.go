package testrun

import (
	"context"
	"fmt"

	"github.com/ika-labs/ika/internal/config"
	"github.com/ika-labs/ika/internal/ledger"
	"github.com/ika-labs/ika/internal/manifest"
	"github.com/ika-labs/ika/internal/probe"
	"github.com/ika-labs/ika/internal/report"
	"github.com/ika-labs/ika/internal/runner"
	"github.com/ika-labs/ika/internal/validator"
)

// runE2E owns the validator for its whole lifetime. The deferred stop covers
// every return; the validator is also stopped before probe and test results
// are inspected. Move.toml is only parsed here, for the test command.
func (o *Orchestrator) runE2E(ctx context.Context, s config.Settings, ld *ledger.Ledger, rep *report.Report) error {
	con := o.console()

	m, err := manifest.ParseFile(manifest.Path(o.Dir))
	if err != nil {
		return err
	}
	line, ok := m.Command(manifest.CommandTest)
	if !ok {
		return fmt.Errorf("no %q command in [ika] of %s", manifest.CommandTest, manifest.FileName)
	}
	argv, err := runner.ParseCommandLine(line)
	if err != nil {
		return fmt.Errorf("parsing integration test command: %w", err)
	}

	con.Step("Starting validator")
	started := rep.Now()
	proc, err := validator.Start(ctx, o.Runner, validator.Command(s.SuiBinary, o.Dir, ld.NetworkConfigPath()))
	rep.Record(string(PhaseValidator), started, 0, err)
	if err != nil {
		return err
	}
	con.Debugf("validator running with pid %d", proc.PID())
	stopped := false
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		o.stopValidator(proc)
	}
	defer stop()

	con.Step("Waiting for validator at %s", s.ValidatorAddress)
	started = rep.Now()
	result, err := o.prober(s).Probe(ctx, s.ValidatorAddress, s.ProbeRetries)
	if err != nil {
		rep.Record(string(PhaseProbe), started, 0, err)
		return fmt.Errorf("waiting for validator: %w", err)
	}
	if result != probe.Ready {
		stop()
		err := unreachable(s.ValidatorAddress, s.ProbeRetries+1)
		rep.Record(string(PhaseProbe), started, 0, err)
		return err
	}
	rep.Record(string(PhaseProbe), started, 0, nil)

	keystore, err := ld.ReadKeystore()
	if err != nil {
		return err
	}
	if _, err := ledger.ParseKeystore([]byte(keystore)); err != nil {
		con.Warn("%s: %v", ld.KeystorePath(), err)
	}

	build, err := o.build(ctx, s, rep)
	if err != nil {
		return err
	}

	cmd := runner.Command{
		Name:   argv[0],
		Args:   argv[1:],
		Dir:    o.Dir,
		Env:    []string{EnvKeystore + "=" + keystore, EnvBuild + "=" + build},
		Stream: true,
	}
	con.Step("Running end-to-end tests: %s", cmd)
	started = rep.Now()
	out, runErr := o.Runner.Run(ctx, cmd)

	stop()

	if runErr != nil {
		rep.Record(string(PhaseIntegration), started, 0, runErr)
		return fmt.Errorf("running integration tests: %w", runErr)
	}
	rep.Record(string(PhaseIntegration), started, out.ExitCode, nil)
	if out.ExitCode != 0 {
		return &ExitError{Phase: PhaseIntegration, Code: out.ExitCode}
	}
	return nil
}

// build compiles the package and returns its base64 bytecode dump.
func (o *Orchestrator) build(ctx context.Context, s config.Settings, rep *report.Report) (string, error) {
	cmd := runner.Command{
		Name: s.SuiBinary,
		Args: []string{"move", "build", "--dump-bytecode-as-base64"},
		Dir:  o.Dir,
	}
	o.console().Step("Building package")

	started := rep.Now()
	out, err := o.Runner.Run(ctx, cmd)
	if err != nil {
		rep.Record(string(PhaseBuild), started, 0, err)
		return "", fmt.Errorf("building package: %w", err)
	}
	rep.Record(string(PhaseBuild), started, out.ExitCode, nil)
	if out.ExitCode != 0 {
		fmt.Fprint(o.console().ErrOut(), out.Stderr)
		return "", &ExitError{Phase: PhaseBuild, Code: out.ExitCode}
	}
	return out.Stdout, nil
}

// stopValidator is best-effort: a failed kill is reported and never changes
// the run's result.
func (o *Orchestrator) stopValidator(proc *validator.Process) {
	if err := proc.Stop(); err != nil {
		o.console().Warn("%v", err)
	}
}
