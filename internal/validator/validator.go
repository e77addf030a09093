// Package validator owns the local validator subprocess used by end-to-end
// tests. A Process is stopped at most once; Stop is safe to call from a
// deferred cleanup and again on an explicit path.
package validator

import (
	"context"
	"fmt"
	"sync"

	"github.com/ika-labs/ika/internal/runner"
)

// Command returns the invocation that starts a validator from networkConfig.
func Command(suiBinary, dir, networkConfig string) runner.Command {
	if suiBinary == "" {
		suiBinary = "sui"
	}
	return runner.Command{
		Name:  suiBinary,
		Args:  []string{"start", "--network.config", networkConfig},
		Dir:   dir,
		Quiet: true,
	}
}

// Process is a running validator.
type Process struct {
	handle runner.Handle

	once    sync.Once
	stopErr error
}

// Start launches the validator in the background with its output discarded.
func Start(ctx context.Context, r runner.Runner, cmd runner.Command) (*Process, error) {
	h, err := r.Start(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("starting validator: %w", err)
	}
	return &Process{handle: h}, nil
}

// PID returns the operating system process id.
func (p *Process) PID() int {
	return p.handle.PID()
}

// Stop kills the validator and reaps it. Only the first call signals the
// process; later calls return the first call's result. The error is for
// reporting only.
func (p *Process) Stop() error {
	p.once.Do(func() {
		if err := p.handle.Kill(); err != nil {
			p.stopErr = fmt.Errorf("killing validator %d: %w", p.handle.PID(), err)
			return
		}
		// The exit status of a killed process is always a signal error.
		_ = p.handle.Wait()
	})
	return p.stopErr
}
