// Package runnertest provides an in-memory runner.Runner for tests.
package runnertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ika-labs/ika/internal/runner"
)

// Fake records every command and answers with scripted results. Commands are
// matched by prefix of their rendered command line; the longest matching
// prefix wins. Unmatched Run calls succeed with exit code 0.
type Fake struct {
	mu sync.Mutex

	results map[string]Result
	starts  map[string]error

	// Runs and Starts record invocations in order.
	Runs   []runner.Command
	Starts []runner.Command
	// Handles holds every handle returned by Start.
	Handles []*Handle
	// Events is an ordered log such as "run:sui move test", "start:sui start ...",
	// "kill:1000", "wait:1000".
	Events []string

	// OnRun, when set, is invoked before the scripted result is returned.
	OnRun func(cmd runner.Command)

	nextPID int
}

// Result is a scripted answer for Run.
type Result struct {
	ExitCode int
	Stdout   string
	Err      error
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		results: make(map[string]Result),
		starts:  make(map[string]error),
		nextPID: 1000,
	}
}

// On scripts the result for commands whose command line starts with prefix.
func (f *Fake) On(prefix string, r Result) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[prefix] = r
	return f
}

// FailStart makes Start fail for commands starting with prefix.
func (f *Fake) FailStart(prefix string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts[prefix] = err
	return f
}

// Run implements runner.Runner.
func (f *Fake) Run(_ context.Context, cmd runner.Command) (*runner.Output, error) {
	f.mu.Lock()
	f.Runs = append(f.Runs, cmd)
	f.Events = append(f.Events, "run:"+cmd.String())
	r, _ := lookup(f.results, cmd.String())
	hook := f.OnRun
	f.mu.Unlock()

	if hook != nil {
		hook(cmd)
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return &runner.Output{ExitCode: r.ExitCode, Stdout: r.Stdout}, nil
}

// Start implements runner.Runner.
func (f *Fake) Start(_ context.Context, cmd runner.Command) (runner.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Starts = append(f.Starts, cmd)
	if err, ok := lookup(f.starts, cmd.String()); ok {
		f.Events = append(f.Events, "start-failed:"+cmd.String())
		return nil, err
	}
	f.nextPID++
	h := &Handle{pid: f.nextPID, fake: f}
	f.Handles = append(f.Handles, h)
	f.Events = append(f.Events, "start:"+cmd.String())
	return h, nil
}

// RunCount returns how many Run calls started with prefix.
func (f *Fake) RunCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Runs {
		if strings.HasPrefix(c.String(), prefix) {
			n++
		}
	}
	return n
}

// EventIndex returns the position of the first event starting with prefix, or -1.
func (f *Fake) EventIndex(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.Events {
		if strings.HasPrefix(e, prefix) {
			return i
		}
	}
	return -1
}

func (f *Fake) record(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = append(f.Events, event)
}

func lookup[T any](m map[string]T, line string) (T, bool) {
	var (
		best    T
		bestLen = -1
	)
	for prefix, v := range m {
		if strings.HasPrefix(line, prefix) && len(prefix) > bestLen {
			best, bestLen = v, len(prefix)
		}
	}
	return best, bestLen >= 0
}

// ErrAlreadyKilled is returned by Handle.Kill after the first call.
var ErrAlreadyKilled = errors.New("process already finished")

// Handle is a fake background process.
type Handle struct {
	pid  int
	fake *Fake

	mu      sync.Mutex
	kills   int
	waits   int
	KillErr error
}

// PID implements runner.Handle.
func (h *Handle) PID() int { return h.pid }

// Kill implements runner.Handle.
func (h *Handle) Kill() error {
	h.mu.Lock()
	h.kills++
	n := h.kills
	err := h.KillErr
	h.mu.Unlock()

	h.fake.record(fmt.Sprintf("kill:%d", h.pid))
	if err != nil {
		return err
	}
	if n > 1 {
		return ErrAlreadyKilled
	}
	return nil
}

// Wait implements runner.Handle.
func (h *Handle) Wait() error {
	h.mu.Lock()
	h.waits++
	h.mu.Unlock()
	h.fake.record(fmt.Sprintf("wait:%d", h.pid))
	return nil
}

// Kills returns how many times Kill was called.
func (h *Handle) Kills() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.kills
}
