package scaffold

import (
	"context"
	"fmt"

	"github.com/ika-labs/ika/internal/runner"
)

// BootstrapOptions controls the commands run in a freshly generated project.
type BootstrapOptions struct {
	NpmBinary   string
	GitBinary   string
	SkipInstall bool
	SkipGit     bool
}

// Bootstrap installs the end-to-end test dependencies and initializes a git
// repository in dir. npm install must succeed. git init must launch, but a
// non-zero exit is returned as a warning only.
func Bootstrap(ctx context.Context, r runner.Runner, dir string, opts BootstrapOptions) ([]string, error) {
	var warnings []string

	if !opts.SkipInstall {
		npm := opts.NpmBinary
		if npm == "" {
			npm = "npm"
		}
		out, err := r.Run(ctx, runner.Command{Name: npm, Args: []string{"install"}, Dir: dir, Stream: true})
		if err != nil {
			return warnings, fmt.Errorf("npm install failed: %w", err)
		}
		if out.ExitCode != 0 {
			return warnings, fmt.Errorf("npm install exited with code %d", out.ExitCode)
		}
	}

	if !opts.SkipGit {
		git := opts.GitBinary
		if git == "" {
			git = "git"
		}
		out, err := r.Run(ctx, runner.Command{Name: git, Args: []string{"init"}, Dir: dir, Stream: true})
		if err != nil {
			return warnings, fmt.Errorf("git init failed: %w", err)
		}
		if out.ExitCode != 0 {
			warnings = append(warnings, "Failed to automatically initialize a new git repository")
		}
	}

	return warnings, nil
}
