package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"
)

// Runner executes external commands.
type Runner interface {
	// Run executes cmd and waits for it to exit.
	Run(ctx context.Context, cmd Command) (*Output, error)
	// Start launches cmd in the background. The caller owns the returned Handle.
	Start(ctx context.Context, cmd Command) (Handle, error)
}

// Handle is a started background process.
type Handle interface {
	PID() int
	Kill() error
	Wait() error
}

// Command describes one external program invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env holds KEY=value entries layered over the current process environment.
	Env []string
	// Stream mirrors the program's stdout and stderr to the runner's writers
	// while still capturing them.
	Stream bool
	// Quiet discards all output.
	Quiet bool
}

// String renders the command line for progress messages.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Output captures the result of a finished command.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the command exited with status 0.
func (o *Output) Success() bool {
	return o != nil && o.ExitCode == 0
}

// SetEnv sets or replaces an environment variable in the env slice.
func SetEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

// MergeEnv layers the KEY=value entries of extra over base.
func MergeEnv(base, extra []string) []string {
	merged := append([]string(nil), base...)
	for _, e := range extra {
		key, value, found := strings.Cut(e, "=")
		if !found || key == "" {
			continue
		}
		merged = SetEnv(merged, key, value)
	}
	return merged
}

// ParseCommandLine splits a command string such as `npm run test:e2e -- --grep "deploy flow"`
// into argv. Quotes and backslash escapes follow POSIX shell rules; there is
// no variable expansion, and shell operators such as && or | are rejected
// because the command is executed directly, not through a shell.
func ParseCommandLine(s string) ([]string, error) {
	p := shellwords.NewParser()
	p.ParseEnv = false
	p.ParseBacktick = false
	args, err := p.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("parsing command %q: %w", s, err)
	}
	if p.Position >= 0 {
		return nil, fmt.Errorf("command %q uses a shell operator at offset %d; wrap it in an npm script instead", s, p.Position)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return args, nil
}
