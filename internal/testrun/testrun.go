package testrun

import (
	"context"
	"errors"
	"fmt"

	"github.com/ika-labs/ika/internal/config"
	"github.com/ika-labs/ika/internal/console"
	"github.com/ika-labs/ika/internal/ledger"
	"github.com/ika-labs/ika/internal/manifest"
	"github.com/ika-labs/ika/internal/probe"
	"github.com/ika-labs/ika/internal/report"
	"github.com/ika-labs/ika/internal/runner"
)

// Environment variables handed to the integration test command.
const (
	EnvKeystore = "SUI_KEYSTORE"
	EnvBuild    = "SUI_BUILD"
)

// Options selects the phases of a run. It is not modified during a run.
type Options struct {
	SkipContractTests  bool
	SkipE2ETests       bool
	ClearPreviousState bool
}

// Outcome is the non-error result of Run.
type Outcome int

const (
	// OutcomeFailed accompanies every non-nil error from Run.
	OutcomeFailed Outcome = iota
	// OutcomeSucceeded means every phase that ran passed.
	OutcomeSucceeded
	// OutcomeManifestMissing means the directory has no Move.toml and nothing ran.
	OutcomeManifestMissing
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeManifestMissing:
		return "manifest missing"
	default:
		return "failed"
	}
}

// Prober waits for an address to accept connections.
type Prober interface {
	Probe(ctx context.Context, addr string, retries int) (probe.Result, error)
}

// Orchestrator runs the test phases for the project in Dir.
type Orchestrator struct {
	Dir      string
	Options  Options
	Settings config.Settings
	Runner   runner.Runner
	// Prober defaults to a TCP prober using Settings.ProbeInterval.
	Prober  Prober
	Console *console.Console
	// DisableReport skips writing .ika/last-run.json.
	DisableReport bool
}

// Run executes the run. A missing manifest returns OutcomeManifestMissing
// with a nil error and invokes nothing.
func (o *Orchestrator) Run(ctx context.Context) (outcome Outcome, err error) {
	con := o.console()
	if !manifest.Exists(o.Dir) {
		con.Info("No %s found in %s, nothing to test.", manifest.FileName, o.Dir)
		return OutcomeManifestMissing, nil
	}

	rep := report.New()
	defer func() {
		rep.Finish(ExitCode(err), err)
		o.writeReport(rep)
	}()

	s := o.settings()
	ld := ledger.New(o.Dir, s.SuiBinary)

	if o.Options.ClearPreviousState {
		con.Step("Clearing %s", ld.Dir())
		started := rep.Now()
		err := ld.Reset()
		rep.Record(string(PhaseReset), started, 0, err)
		if err != nil {
			return OutcomeFailed, err
		}
	}

	if err := o.ensureLedger(ctx, ld, rep); err != nil {
		return OutcomeFailed, err
	}

	if o.Options.SkipContractTests {
		con.Debugf("skipping contract tests")
		rep.Skip(string(PhaseContractTest))
	} else if err := o.runContractTests(ctx, s, rep); err != nil {
		return OutcomeFailed, err
	}

	if o.Options.SkipE2ETests {
		con.Debugf("skipping end-to-end tests")
		rep.Skip(string(PhaseIntegration))
	} else if err := o.runE2E(ctx, s, ld, rep); err != nil {
		return OutcomeFailed, err
	}

	con.Success("All tests passed.")
	return OutcomeSucceeded, nil
}

func (o *Orchestrator) ensureLedger(ctx context.Context, ld *ledger.Ledger, rep *report.Report) error {
	if ld.Exists() {
		o.console().Debugf("using existing ledger at %s", ld.Dir())
		return nil
	}

	o.console().Step("Creating test ledger in %s", ld.Dir())
	started := rep.Now()
	err := ld.Bootstrap(ctx, o.Runner)
	code := 0
	var genesisErr *ledger.GenesisError
	if errors.As(err, &genesisErr) {
		code = genesisErr.ExitCode
	}
	rep.Record(string(PhaseGenesis), started, code, err)
	if err != nil {
		return fmt.Errorf("bootstrapping ledger: %w", err)
	}
	return nil
}

func (o *Orchestrator) runContractTests(ctx context.Context, s config.Settings, rep *report.Report) error {
	cmd := runner.Command{
		Name:   s.SuiBinary,
		Args:   []string{"move", "test"},
		Dir:    o.Dir,
		Stream: true,
	}
	o.console().Step("Running contract tests: %s", cmd)

	started := rep.Now()
	out, err := o.Runner.Run(ctx, cmd)
	if err != nil {
		rep.Record(string(PhaseContractTest), started, 0, err)
		return fmt.Errorf("running contract tests: %w", err)
	}
	rep.Record(string(PhaseContractTest), started, out.ExitCode, nil)
	if out.ExitCode != 0 {
		return &ExitError{Phase: PhaseContractTest, Code: out.ExitCode}
	}
	return nil
}

func (o *Orchestrator) writeReport(rep *report.Report) {
	if o.DisableReport {
		return
	}
	path, err := rep.Write(o.Dir)
	if err != nil {
		o.console().Warn("could not save run report: %v", err)
		return
	}
	o.console().Debugf("run %s recorded in %s", rep.ID, path)
}

func (o *Orchestrator) console() *console.Console {
	if o.Console == nil {
		return console.Discard()
	}
	return o.Console
}

func (o *Orchestrator) settings() config.Settings {
	s := o.Settings
	if s.SuiBinary == "" {
		s.SuiBinary = config.DefaultSuiBinary
	}
	if s.ValidatorAddress == "" {
		s.ValidatorAddress = config.DefaultValidatorAddress
	}
	if s.ProbeRetries < 0 {
		s.ProbeRetries = 0
	}
	if s.ProbeInterval <= 0 {
		s.ProbeInterval = config.DefaultProbeInterval
	}
	return s
}

func (o *Orchestrator) prober(s config.Settings) Prober {
	if o.Prober != nil {
		return o.Prober
	}
	con := o.console()
	return &probe.Prober{
		Interval: s.ProbeInterval,
		OnAttempt: func(attempt int, err error) {
			con.Debugf("validator not ready (attempt %d): %v", attempt, err)
		},
	}
}
