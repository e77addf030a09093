// Package report records the phases of one test run and persists them as
// JSON in the project's .ika directory.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ika-labs/ika/internal/branding"
)

// FileName is the report file inside the project's state directory.
const FileName = "last-run.json"

// Status is the outcome of a phase or of the whole run.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Phase is one step of a run.
type Phase struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	ExitCode int           `json:"exit_code,omitempty"`
	Duration time.Duration `json:"duration_ns,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Report is the record of a single run.
type Report struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     Status    `json:"status"`
	ExitCode   int       `json:"exit_code"`
	Error      string    `json:"error,omitempty"`
	Phases     []Phase   `json:"phases"`

	now func() time.Time
}

// New starts a report with a fresh run id.
func New() *Report {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) *Report {
	return &Report{
		ID:        uuid.NewString(),
		StartedAt: now(),
		Phases:    []Phase{},
		now:       now,
	}
}

// Record appends a phase that started at started. A non-nil err or a
// non-zero exit code marks the phase failed.
func (r *Report) Record(name string, started time.Time, exitCode int, err error) {
	p := Phase{
		Name:     name,
		Status:   StatusPassed,
		ExitCode: exitCode,
		Duration: r.now().Sub(started),
	}
	if err != nil || exitCode != 0 {
		p.Status = StatusFailed
	}
	if err != nil {
		p.Error = err.Error()
	}
	r.Phases = append(r.Phases, p)
}

// Skip appends a phase that did not run.
func (r *Report) Skip(name string) {
	r.Phases = append(r.Phases, Phase{Name: name, Status: StatusSkipped})
}

// Phase returns the last recorded phase with the given name.
func (r *Report) Phase(name string) (Phase, bool) {
	for i := len(r.Phases) - 1; i >= 0; i-- {
		if r.Phases[i].Name == name {
			return r.Phases[i], true
		}
	}
	return Phase{}, false
}

// Now returns the report's clock reading, for timing phases.
func (r *Report) Now() time.Time {
	return r.now()
}

// Finish stamps the end of the run.
func (r *Report) Finish(exitCode int, err error) {
	r.FinishedAt = r.now()
	r.ExitCode = exitCode
	r.Status = StatusPassed
	if err != nil || exitCode != 0 {
		r.Status = StatusFailed
	}
	if err != nil {
		r.Error = err.Error()
	}
}

// Path returns the report location for a project directory.
func Path(projectDir string) string {
	return filepath.Join(projectDir, branding.HomeDir(), FileName)
}

// Write saves the report to Path(projectDir) and returns that path.
func (r *Report) Write(projectDir string) (string, error) {
	path := Path(projectDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// Load reads the last report written for projectDir.
func Load(projectDir string) (*Report, error) {
	data, err := os.ReadFile(Path(projectDir))
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	r := &Report{now: time.Now}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	return r, nil
}
