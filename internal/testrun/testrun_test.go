package testrun

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ika-labs/ika/internal/config"
	"github.com/ika-labs/ika/internal/console"
	"github.com/ika-labs/ika/internal/ledger"
	"github.com/ika-labs/ika/internal/probe"
	"github.com/ika-labs/ika/internal/report"
	"github.com/ika-labs/ika/internal/runner"
	"github.com/ika-labs/ika/internal/runner/runnertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testManifest = `[package]
name = "counter"
version = "0.0.1"

[addresses]
counter = "0x0"

[ika]
test = "npm run e2e -- --grep 'counter flow'"
`
	testKeystore = `["AAECAwQ=","BQYHCAk="]`
	testBuild    = `{"modules":["oRzrCwYAAAAK"],"dependencies":["0x2"]}`
)

type fakeProber struct {
	result probe.Result
	err    error
	calls  int
	addr   string
	retry  int
	// onProbe runs before the result is returned.
	onProbe func()
}

func (p *fakeProber) Probe(_ context.Context, addr string, retries int) (probe.Result, error) {
	p.calls++
	p.addr = addr
	p.retry = retries
	if p.onProbe != nil {
		p.onProbe()
	}
	return p.result, p.err
}

func writeManifest(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Move.toml"), []byte(testManifest), 0644))
}

func writeLedger(t *testing.T, dir string) {
	t.Helper()
	ld := filepath.Join(dir, ledger.DirName)
	require.NoError(t, os.MkdirAll(ld, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(ld, ledger.NetworkConfigFile), []byte("validator_configs: []\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(ld, ledger.KeystoreFile), []byte(testKeystore), 0600))
}

// genesisWritesLedger makes the fake genesis command produce the ledger files.
func genesisWritesLedger(t *testing.T, fake *runnertest.Fake, dir string) {
	fake.OnRun = func(cmd runner.Command) {
		if len(cmd.Args) > 0 && cmd.Args[0] == "genesis" {
			writeLedger(t, dir)
		}
	}
}

func newOrchestrator(dir string, fake *runnertest.Fake, p Prober, opts Options) *Orchestrator {
	return &Orchestrator{
		Dir:     dir,
		Options: opts,
		Settings: config.Settings{
			SuiBinary:        "sui",
			ValidatorAddress: "127.0.0.1:9000",
			ProbeRetries:     3,
			ProbeInterval:    time.Millisecond,
		},
		Runner:  fake,
		Prober:  p,
		Console: console.Discard(),
	}
}

func TestRun_ManifestMissing(t *testing.T) {
	dir := t.TempDir()
	fake := runnertest.New()
	p := &fakeProber{result: probe.Ready}

	var out bytes.Buffer
	o := newOrchestrator(dir, fake, p, Options{})
	o.Console = console.New(&out, &out, false)

	outcome, err := o.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeManifestMissing, outcome)
	assert.Equal(t, 0, ExitCode(err))
	assert.Empty(t, fake.Runs)
	assert.Empty(t, fake.Starts)
	assert.Zero(t, p.calls)
	assert.Contains(t, out.String(), "Move.toml")

	_, statErr := os.Stat(report.Path(dir))
	assert.True(t, os.IsNotExist(statErr), "no report for a missing manifest")
}

func TestRun_GenesisOnceThenSkipAllPhases(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	fake := runnertest.New()

	outcome, err := newOrchestrator(dir, fake, &fakeProber{}, Options{
		SkipContractTests: true,
		SkipE2ETests:      true,
	}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, outcome)
	assert.Equal(t, 1, fake.RunCount("sui genesis"))
	require.Len(t, fake.Runs, 1)
	assert.Equal(t, []string{"genesis", "--working-dir", "./test-ledger", "--force"}, fake.Runs[0].Args)
	assert.Equal(t, dir, fake.Runs[0].Dir)
	assert.Empty(t, fake.Starts)
	assert.DirExists(t, filepath.Join(dir, ledger.DirName))
}

func TestRun_ExistingLedgerSkipsGenesis(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	writeLedger(t, dir)
	fake := runnertest.New()

	outcome, err := newOrchestrator(dir, fake, &fakeProber{}, Options{
		SkipE2ETests: true,
	}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, outcome)
	assert.Zero(t, fake.RunCount("sui genesis"))
	assert.Equal(t, 1, fake.RunCount("sui move test"))
}

func TestRun_GenesisBeforeAnyTestPhase(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	fake := runnertest.New()
	genesisWritesLedger(t, fake, dir)

	_, err := newOrchestrator(dir, fake, &fakeProber{result: probe.Ready}, Options{}).Run(context.Background())
	require.NoError(t, err)

	genesis := fake.EventIndex("run:sui genesis")
	require.GreaterOrEqual(t, genesis, 0)
	assert.Less(t, genesis, fake.EventIndex("run:sui move test"))
	assert.Less(t, genesis, fake.EventIndex("start:sui start"))
	assert.Equal(t, 1, fake.RunCount("sui genesis"))
}

func TestRun_GenesisFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	fake := runnertest.New().On("sui genesis", runnertest.Result{ExitCode: 1})

	outcome, err := newOrchestrator(dir, fake, &fakeProber{}, Options{}).Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	var genesisErr *ledger.GenesisError
	assert.ErrorAs(t, err, &genesisErr)
	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr), "genesis failure is not an exit status failure")
	assert.Zero(t, fake.RunCount("sui move test"))
	assert.Empty(t, fake.Starts)
}

func TestRun_ClearPreviousStateResetsLedger(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	writeLedger(t, dir)
	stale := filepath.Join(dir, ledger.DirName, "stale.db")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	fake := runnertest.New()
	_, err := newOrchestrator(dir, fake, &fakeProber{}, Options{
		ClearPreviousState: true,
		SkipContractTests:  true,
		SkipE2ETests:       true,
	}).Run(context.Background())

	require.NoError(t, err)
	assert.NoFileExists(t, stale)
	assert.Equal(t, 1, fake.RunCount("sui genesis"))
}

func TestRun_ContractTestExitStatus(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	writeLedger(t, dir)
	fake := runnertest.New().On("sui move test", runnertest.Result{ExitCode: 3})
	p := &fakeProber{result: probe.Ready}

	outcome, err := newOrchestrator(dir, fake, p, Options{}).Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, PhaseContractTest, exitErr.Phase)
	assert.Equal(t, 3, ExitCode(err))
	assert.True(t, fake.Runs[0].Stream, "contract test output is streamed")
	assert.Empty(t, fake.Starts, "no validator after a failed contract test")
	assert.Zero(t, p.calls)
}

func TestRun_ContractTestLaunchFailure(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	writeLedger(t, dir)
	launchErr := errors.New(`exec: "sui": executable file not found in $PATH`)
	fake := runnertest.New().On("sui move test", runnertest.Result{Err: launchErr})

	_, err := newOrchestrator(dir, fake, &fakeProber{}, Options{}).Run(context.Background())

	require.ErrorIs(t, err, launchErr)
	assert.Equal(t, 1, ExitCode(err))
}

func TestRun_E2ESuccess(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	writeLedger(t, dir)
	fake := runnertest.New().On("sui move build", runnertest.Result{Stdout: testBuild})
	p := &fakeProber{result: probe.Ready}

	outcome, err := newOrchestrator(dir, fake, p, Options{SkipContractTests: true}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, outcome)

	assert.Equal(t, 1, p.calls)
	assert.Equal(t, "127.0.0.1:9000", p.addr)
	assert.Equal(t, 3, p.retry)

	require.Len(t, fake.Starts, 1)
	start := fake.Starts[0]
	assert.Equal(t, []string{"start", "--network.config", filepath.Join(dir, "test-ledger", "network.yaml")}, start.Args)
	assert.True(t, start.Quiet)

	require.Len(t, fake.Runs, 2)
	assert.Equal(t, []string{"move", "build", "--dump-bytecode-as-base64"}, fake.Runs[0].Args)

	integration := fake.Runs[1]
	assert.Equal(t, "npm", integration.Name)
	assert.Equal(t, []string{"run", "e2e", "--", "--grep", "counter flow"}, integration.Args)
	assert.Contains(t, integration.Env, "SUI_KEYSTORE="+testKeystore)
	assert.Contains(t, integration.Env, "SUI_BUILD="+testBuild)

	require.Len(t, fake.Handles, 1)
	assert.Equal(t, 1, fake.Handles[0].Kills())
	assert.Less(t, fake.EventIndex("run:npm run e2e"), fake.EventIndex("kill:"))
}

func TestRun_ProbeTimeout(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	writeLedger(t, dir)
	fake := runnertest.New()
	p := &fakeProber{result: probe.TimedOut}

	outcome, err := newOrchestrator(dir, fake, p, Options{SkipContractTests: true}).Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, ErrValidatorUnreachable)
	assert.ErrorIs(t, err, probe.ErrTimedOut)
	assert.Contains(t, err.Error(), "4 attempts")

	require.Len(t, fake.Handles, 1)
	assert.Equal(t, 1, fake.Handles[0].Kills(), "validator killed exactly once")
	assert.Zero(t, fake.RunCount("npm"), "integration test never invoked")
	assert.Zero(t, fake.RunCount("sui move build"))
}

func TestRun_ProbeCancelled(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	writeLedger(t, dir)
	fake := runnertest.New()
	p := &fakeProber{result: probe.TimedOut, err: context.Canceled}

	_, err := newOrchestrator(dir, fake, p, Options{SkipContractTests: true}).Run(context.Background())

	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, fake.Handles, 1)
	assert.Equal(t, 1, fake.Handles[0].Kills())
}

func TestRun_IntegrationExitCodeAfterKill(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	writeLedger(t, dir)
	fake := runnertest.New().On("npm", runnertest.Result{ExitCode: 2})

	outcome, err := newOrchestrator(dir, fake, &fakeProber{result: probe.Ready}, Options{SkipContractTests: true}).Run(context.Background())

	assert.Equal(t, OutcomeFailed, outcome)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, PhaseIntegration, exitErr.Phase)
	assert.Equal(t, 2, ExitCode(err))

	require.Len(t, fake.Handles, 1)
	assert.Equal(t, 1, fake.Handles[0].Kills())
	kill := fake.EventIndex("kill:")
	assert.Greater(t, kill, fake.EventIndex("run:npm"))
	assert.Equal(t, kill+1, fake.EventIndex("wait:"), "killed validator is reaped")
}

func TestRun_IntegrationLaunchFailureAfterKill(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	writeLedger(t, dir)
	launchErr := errors.New(`exec: "npm": executable file not found in $PATH`)
	fake := runnertest.New().On("npm", runnertest.Result{Err: launchErr})

	_, err := newOrchestrator(dir, fake, &fakeProber{result: probe.Ready}, Options{SkipContractTests: true}).Run(context.Background())

	require.ErrorIs(t, err, launchErr)
	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr))
	require.Len(t, fake.Handles, 1)
	assert.Equal(t, 1, fake.Handles[0].Kills())
}

func TestRun_KillFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	writeLedger(t, dir)
	fake := runnertest.New()

	var errOut bytes.Buffer
	o := newOrchestrator(dir, fake, &fakeProber{result: probe.Ready}, Options{SkipContractTests: true})
	o.Console = console.New(&bytes.Buffer{}, &errOut, false)

	fake.OnRun = func(cmd runner.Command) {
		if cmd.Name == "npm" {
			fake.Handles[0].KillErr = errors.New("operation not permitted")
		}
	}

	outcome, err := o.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, outcome)
	assert.Equal(t, 1, fake.Handles[0].Kills())
	assert.Equal(t, 1, strings.Count(errOut.String(), "operation not permitted"))
}

func TestRun_ValidatorStartFailure(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	writeLedger(t, dir)
	fake := runnertest.New().FailStart("sui start", errors.New("fork/exec sui: permission denied"))
	p := &fakeProber{result: probe.Ready}

	_, err := newOrchestrator(dir, fake, p, Options{SkipContractTests: true}).Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting validator")
	assert.Zero(t, p.calls)
}

func TestRun_BuildExitStatus(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	writeLedger(t, dir)
	fake := runnertest.New().On("sui move build", runnertest.Result{ExitCode: 1})

	_, err := newOrchestrator(dir, fake, &fakeProber{result: probe.Ready}, Options{SkipContractTests: true}).Run(context.Background())

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, PhaseBuild, exitErr.Phase)
	assert.Zero(t, fake.RunCount("npm"))
	assert.Equal(t, 1, fake.Handles[0].Kills())
}

func TestRun_MalformedKeystoreIsPassedThrough(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	writeLedger(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ledger.DirName, ledger.KeystoreFile), []byte("not json"), 0600))
	fake := runnertest.New()

	var errOut bytes.Buffer
	o := newOrchestrator(dir, fake, &fakeProber{result: probe.Ready}, Options{SkipContractTests: true})
	o.Console = console.New(&bytes.Buffer{}, &errOut, false)

	outcome, err := o.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, outcome)
	assert.Contains(t, errOut.String(), ledger.ErrInvalidKeystore.Error())
	require.Len(t, fake.Runs, 2)
	assert.Contains(t, fake.Runs[1].Env, EnvKeystore+"=not json")
	assert.Equal(t, 1, fake.Handles[0].Kills())
}

func TestRun_UnparsableManifestWithE2ESkipped(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Move.toml"), []byte("[package\nname = "), 0644))
	writeLedger(t, dir)
	fake := runnertest.New()

	outcome, err := newOrchestrator(dir, fake, &fakeProber{result: probe.Ready}, Options{SkipE2ETests: true}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, outcome)
	assert.Equal(t, 1, fake.RunCount("sui move test"))
}

func TestRun_UnparsableManifestFailsBeforeValidator(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Move.toml"), []byte("[package\nname = "), 0644))
	writeLedger(t, dir)
	fake := runnertest.New()

	outcome, err := newOrchestrator(dir, fake, &fakeProber{result: probe.Ready}, Options{SkipContractTests: true}).Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Empty(t, fake.Handles)
	assert.Zero(t, fake.RunCount("npm"))
}

func TestRun_DefaultTestCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Move.toml"), []byte("[package]\nname = \"counter\"\n"), 0644))
	writeLedger(t, dir)
	fake := runnertest.New()

	_, err := newOrchestrator(dir, fake, &fakeProber{result: probe.Ready}, Options{SkipContractTests: true}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, fake.RunCount("npm test"))
}

func TestRun_WritesReport(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	writeLedger(t, dir)
	fake := runnertest.New().On("npm", runnertest.Result{ExitCode: 2})

	_, err := newOrchestrator(dir, fake, &fakeProber{result: probe.Ready}, Options{}).Run(context.Background())
	require.Error(t, err)

	rep, err := report.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, report.StatusFailed, rep.Status)
	assert.Equal(t, 2, rep.ExitCode)

	phase, ok := rep.Phase(string(PhaseIntegration))
	require.True(t, ok)
	assert.Equal(t, report.StatusFailed, phase.Status)
	assert.Equal(t, 2, phase.ExitCode)

	phase, ok = rep.Phase(string(PhaseContractTest))
	require.True(t, ok)
	assert.Equal(t, report.StatusPassed, phase.Status)
}

func TestRun_DisableReport(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	writeLedger(t, dir)

	o := newOrchestrator(dir, runnertest.New(), &fakeProber{}, Options{SkipContractTests: true, SkipE2ETests: true})
	o.DisableReport = true
	_, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.NoFileExists(t, report.Path(dir))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 7, ExitCode(&ExitError{Phase: PhaseIntegration, Code: 7}))
	assert.Equal(t, 7, ExitCode(errors.Join(errors.New("ctx"), &ExitError{Code: 7})))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "succeeded", OutcomeSucceeded.String())
	assert.Equal(t, "manifest missing", OutcomeManifestMissing.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
}
