// Package console writes human-facing progress messages for ika commands.
// Output is plain text with optional color; it is not a structured log.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	stepColor    = color.New(color.FgCyan, color.Bold)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	successColor = color.New(color.FgGreen)
	debugColor   = color.New(color.Faint)
)

// Console prints progress, warnings, and errors. The zero value is not usable;
// construct with New or Discard.
type Console struct {
	out     io.Writer
	errOut  io.Writer
	verbose bool
}

// New returns a Console writing progress to out and problems to errOut.
// Debug lines are only printed when verbose is true.
func New(out, errOut io.Writer, verbose bool) *Console {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Console{out: out, errOut: errOut, verbose: verbose}
}

// Discard returns a Console that drops everything.
func Discard() *Console {
	return &Console{out: io.Discard, errOut: io.Discard}
}

// DisableColor turns off color for every Console in the process.
func DisableColor() {
	color.NoColor = true
}

// Out returns the writer used for regular progress output.
func (c *Console) Out() io.Writer { return c.out }

// ErrOut returns the writer used for warnings and errors.
func (c *Console) ErrOut() io.Writer { return c.errOut }

// Step announces the start of a phase.
func (c *Console) Step(format string, args ...interface{}) {
	_, _ = stepColor.Fprintf(c.out, "==> "+format+"\n", args...)
}

// Info prints a plain progress line.
func (c *Console) Info(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Success prints a green completion line.
func (c *Console) Success(format string, args ...interface{}) {
	_, _ = successColor.Fprintf(c.out, format+"\n", args...)
}

// Warn prints a non-fatal problem to the error stream.
func (c *Console) Warn(format string, args ...interface{}) {
	_, _ = warnColor.Fprintf(c.errOut, "warning: "+format+"\n", args...)
}

// Error prints each line of err to the error stream.
func (c *Console) Error(err error) {
	for _, line := range strings.Split(err.Error(), "\n") {
		_, _ = errorColor.Fprintf(c.errOut, "error: %s\n", line)
	}
}

// Debugf prints only in verbose mode.
func (c *Console) Debugf(format string, args ...interface{}) {
	if !c.verbose {
		return
	}
	_, _ = debugColor.Fprintf(c.errOut, format+"\n", args...)
}

// Status prints a doctor-style status line, e.g. "  [ OK ] sui found".
func (c *Console) Status(status Status, format string, args ...interface{}) {
	label := status.label()
	msg := fmt.Sprintf(format, args...)
	switch status {
	case StatusOK, StatusFix:
		_, _ = successColor.Fprintf(c.out, "  [%s] %s\n", label, msg)
	case StatusWarn, StatusMiss:
		_, _ = warnColor.Fprintf(c.out, "  [%s] %s\n", label, msg)
	case StatusFail:
		_, _ = errorColor.Fprintf(c.out, "  [%s] %s\n", label, msg)
	default:
		fmt.Fprintf(c.out, "  [%s] %s\n", label, msg)
	}
}

// Status is the outcome marker of a single diagnostic line.
type Status int

const (
	StatusOK Status = iota
	StatusInfo
	StatusWarn
	StatusMiss
	StatusFail
	StatusFix
)

func (s Status) label() string {
	switch s {
	case StatusOK:
		return " OK "
	case StatusInfo:
		return "INFO"
	case StatusWarn:
		return "WARN"
	case StatusMiss:
		return "MISS"
	case StatusFail:
		return "FAIL"
	case StatusFix:
		return "FIX "
	default:
		return " ?? "
	}
}
