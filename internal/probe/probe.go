// Package probe checks whether a TCP endpoint accepts connections, retrying a
// bounded number of times with a fixed pause between attempts.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// DefaultInterval is the pause between failed connection attempts.
const DefaultInterval = time.Second

// ErrTimedOut is the error callers wrap when a probe exhausts its budget.
var ErrTimedOut = errors.New("endpoint did not accept connections before the retry budget ran out")

// Result is the terminal outcome of a probe.
type Result int

const (
	// TimedOut means every attempt failed.
	TimedOut Result = iota
	// Ready means one attempt connected.
	Ready
)

func (r Result) String() string {
	switch r {
	case Ready:
		return "ready"
	case TimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// DialFunc opens a connection; net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Prober polls an address. The zero value dials real TCP and sleeps
// DefaultInterval between attempts.
type Prober struct {
	Dial     DialFunc
	Sleep    SleepFunc
	Interval time.Duration
	// DialTimeout bounds a single attempt; zero means one Interval.
	DialTimeout time.Duration
	// OnAttempt, when set, is called after every failed attempt with the
	// 1-based attempt number and the dial error.
	OnAttempt func(attempt int, err error)
}

// Probe dials addr up to retries+1 times. It returns Ready on the first
// successful connection and TimedOut once the budget is spent. The only error
// it returns is ctx's, when ctx ends during a pause.
func (p *Prober) Probe(ctx context.Context, addr string, retries int) (Result, error) {
	if retries < 0 {
		retries = 0
	}
	dial := p.dialFunc()
	sleep := p.sleepFunc()
	interval := p.interval()

	for attempt := 1; attempt <= retries+1; attempt++ {
		err := p.attempt(ctx, dial, addr)
		if err == nil {
			return Ready, nil
		}
		if p.OnAttempt != nil {
			p.OnAttempt(attempt, err)
		}
		if attempt == retries+1 {
			break
		}
		if err := sleep(ctx, interval); err != nil {
			return TimedOut, fmt.Errorf("probing %s: %w", addr, err)
		}
	}
	return TimedOut, nil
}

func (p *Prober) attempt(ctx context.Context, dial DialFunc, addr string) error {
	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = p.interval()
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := dial(attemptCtx, "tcp", addr)
	if err != nil {
		return err
	}
	_ = conn.Close()
	return nil
}

func (p *Prober) dialFunc() DialFunc {
	if p.Dial != nil {
		return p.Dial
	}
	var d net.Dialer
	return d.DialContext
}

func (p *Prober) sleepFunc() SleepFunc {
	if p.Sleep != nil {
		return p.Sleep
	}
	return Sleep
}

func (p *Prober) interval() time.Duration {
	if p.Interval <= 0 {
		return DefaultInterval
	}
	return p.Interval
}

// Sleep waits for d, returning early with ctx.Err() if ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
