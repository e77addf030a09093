// Package ledger manages the local validator state kept in a project's
// test-ledger directory: the network configuration written by genesis and
// the keystore holding the test accounts' key material.
package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ika-labs/ika/internal/runner"
)

// Fixed layout relative to the project directory.
const (
	DirName           = "test-ledger"
	NetworkConfigFile = "network.yaml"
	KeystoreFile      = "sui.keystore"
)

// KeystorePerm is the expected permission mode of the keystore file.
const KeystorePerm os.FileMode = 0600

// ErrInvalidKeystore is returned when the keystore is not a JSON array of base64 keys.
var ErrInvalidKeystore = errors.New("keystore is not a JSON array of base64 encoded keys")

// Ledger is the test-ledger directory of one project.
type Ledger struct {
	projectDir string
	suiBinary  string
}

// New returns the ledger rooted at <projectDir>/test-ledger. suiBinary is the
// program used for genesis.
func New(projectDir, suiBinary string) *Ledger {
	if suiBinary == "" {
		suiBinary = "sui"
	}
	return &Ledger{projectDir: projectDir, suiBinary: suiBinary}
}

// Dir returns the absolute or project-relative ledger directory.
func (l *Ledger) Dir() string {
	return filepath.Join(l.projectDir, DirName)
}

// NetworkConfigPath returns the path of network.yaml.
func (l *Ledger) NetworkConfigPath() string {
	return filepath.Join(l.Dir(), NetworkConfigFile)
}

// KeystorePath returns the path of the keystore file.
func (l *Ledger) KeystorePath() string {
	return filepath.Join(l.Dir(), KeystoreFile)
}

// Exists reports whether genesis has already produced a network configuration.
func (l *Ledger) Exists() bool {
	_, err := os.Stat(l.NetworkConfigPath())
	return err == nil
}

// Reset deletes the ledger directory tree. A missing directory is not an error.
func (l *Ledger) Reset() error {
	if err := os.RemoveAll(l.Dir()); err != nil {
		return fmt.Errorf("removing %s: %w", l.Dir(), err)
	}
	return nil
}

// GenesisCommand returns the command that bootstraps the ledger.
func (l *Ledger) GenesisCommand() runner.Command {
	return runner.Command{
		Name: l.suiBinary,
		Args: []string{"genesis", "--working-dir", "./" + DirName, "--force"},
		Dir:  l.projectDir,
	}
}

// Bootstrap creates the ledger directory and runs genesis in it. Both a
// launch failure and a non-zero exit status are returned as errors.
func (l *Ledger) Bootstrap(ctx context.Context, r runner.Runner) error {
	if err := os.MkdirAll(l.Dir(), 0755); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}

	cmd := l.GenesisCommand()
	out, err := r.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("running genesis: %w", err)
	}
	if out.ExitCode != 0 {
		return &GenesisError{ExitCode: out.ExitCode, Stderr: out.Stderr}
	}
	return nil
}

// GenesisError reports a genesis command that exited with a non-zero status.
type GenesisError struct {
	ExitCode int
	Stderr   string
}

func (e *GenesisError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("genesis exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("genesis exited with code %d: %s", e.ExitCode, trimOutput(e.Stderr))
}

// ReadKeystore returns the keystore contents unchanged.
func (l *Ledger) ReadKeystore() (string, error) {
	data, err := os.ReadFile(l.KeystorePath())
	if err != nil {
		return "", fmt.Errorf("reading keystore: %w", err)
	}
	return string(data), nil
}

// ParseKeystore decodes keystore contents into raw key bytes.
func ParseKeystore(data []byte) ([][]byte, error) {
	var encoded []string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeystore, err)
	}
	keys := make([][]byte, 0, len(encoded))
	for i, e := range encoded {
		raw, err := base64.StdEncoding.DecodeString(e)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidKeystore, i, err)
		}
		keys = append(keys, raw)
	}
	return keys, nil
}

// KeystoreMode returns the permission bits of the keystore file.
func (l *Ledger) KeystoreMode() (os.FileMode, error) {
	info, err := os.Stat(l.KeystorePath())
	if err != nil {
		return 0, err
	}
	return info.Mode().Perm(), nil
}

func trimOutput(s string) string {
	const max = 512
	if len(s) > max {
		s = s[len(s)-max:]
	}
	return strings.TrimRight(s, "\r\n")
}
