package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// ExecRunner runs commands as real OS processes.
type ExecRunner struct {
	// Stdout and Stderr receive streamed output; they default to os.Stdout/os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

var _ Runner = (*ExecRunner)(nil)

// Run executes the command and waits for it. A non-zero exit status is
// returned in Output.ExitCode with a nil error; an error means the program
// could not be launched or waited on.
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Output, error) {
	cmd := r.build(ctx, c)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	if c.Stream && !c.Quiet {
		cmd.Stdout = io.MultiWriter(r.stdout(), &stdoutBuf)
		cmd.Stderr = io.MultiWriter(r.stderr(), &stderrBuf)
	}

	err := cmd.Run()

	output := &Output{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return output, fmt.Errorf("running %s: %w", c.Name, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			output.ExitCode = exitStatus(exitErr)
			return output, nil
		}
		return output, fmt.Errorf("running %s: %w", c.Name, err)
	}

	output.ExitCode = 0
	return output, nil
}

// exitStatus maps a process killed by a signal to 128+signal, the status a
// shell reports for it. ExitError.ExitCode returns -1 in that case.
func exitStatus(exitErr *exec.ExitError) int {
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	if code := exitErr.ExitCode(); code >= 0 {
		return code
	}
	return 1
}

// Start launches the command in the background with its output discarded
// unless Stream is set.
func (r *ExecRunner) Start(ctx context.Context, c Command) (Handle, error) {
	cmd := r.build(ctx, c)
	if c.Stream && !c.Quiet {
		cmd.Stdout = r.stdout()
		cmd.Stderr = r.stderr()
	}
	// Leaving Stdout/Stderr nil connects them to the null device.

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", c.Name, err)
	}
	return &execHandle{cmd: cmd}, nil
}

func (r *ExecRunner) build(ctx context.Context, c Command) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = MergeEnv(os.Environ(), c.Env)
	}
	return cmd
}

func (r *ExecRunner) stdout() io.Writer {
	if r.Stdout == nil {
		return os.Stdout
	}
	return r.Stdout
}

func (r *ExecRunner) stderr() io.Writer {
	if r.Stderr == nil {
		return os.Stderr
	}
	return r.Stderr
}

type execHandle struct {
	cmd *exec.Cmd
}

func (h *execHandle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

func (h *execHandle) Kill() error {
	return h.cmd.Process.Kill()
}

func (h *execHandle) Wait() error {
	return h.cmd.Wait()
}
