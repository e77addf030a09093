package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/ika-labs/ika/internal/runner"
)

// ErrNotFound is returned when a program is not on PATH.
var ErrNotFound = errors.New("not found in PATH")

// LookupBinary resolves name on PATH.
func LookupBinary(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return path, nil
}

// Version runs "<binary> --version" and returns the parsed version.
func Version(ctx context.Context, r runner.Runner, binary string) (string, error) {
	out, err := r.Run(ctx, runner.Command{Name: binary, Args: []string{"--version"}})
	if err != nil {
		return "", fmt.Errorf("running %s --version: %w", binary, err)
	}
	if out.ExitCode != 0 {
		return "", fmt.Errorf("%s --version exited with code %d", binary, out.ExitCode)
	}
	return ParseVersionOutput(out.Stdout)
}
