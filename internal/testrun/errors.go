package testrun

import (
	"errors"
	"fmt"

	"github.com/ika-labs/ika/internal/probe"
)

// Phase names a step of a run.
type Phase string

const (
	PhaseReset        Phase = "reset"
	PhaseGenesis      Phase = "genesis"
	PhaseContractTest Phase = "contract-test"
	PhaseValidator    Phase = "validator"
	PhaseProbe        Phase = "probe"
	PhaseBuild        Phase = "build"
	PhaseIntegration  Phase = "integration-test"
)

// ErrValidatorUnreachable is returned when the validator never accepts a
// connection. It always wraps probe.ErrTimedOut as well.
var ErrValidatorUnreachable = errors.New("validator did not become reachable")

// ExitError reports an external command that ran and exited non-zero.
type ExitError struct {
	Phase Phase
	Code  int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Phase, e.Code)
}

// ExitCode maps a run error to a process exit status: 0 for nil, the
// command's status for *ExitError, and 1 for anything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

func unreachable(addr string, attempts int) error {
	return fmt.Errorf("%w at %s after %d attempts: %w", ErrValidatorUnreachable, addr, attempts, probe.ErrTimedOut)
}
