//go:build integration

package integration_test

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	HomeDir    string // HOME, so ~/.ika/config.yaml is sandboxed
	BinDir     string // fake sui and npm, first on PATH
	StateDir   string // FAKE_STATE, where the fake programs record what they saw
	ProjectDir string // the generated Move project
}

const fakeSui = `#!/bin/sh
case "$1" in
  genesis)
    mkdir -p test-ledger
    echo "validator_configs: [{}, {}]" > test-ledger/network.yaml
    echo "account_keys: [{}]" >> test-ledger/network.yaml
    printf '%s' '["AAECAwQ=","BQYHCAk="]' > test-ledger/sui.keystore
    echo genesis >> "$FAKE_STATE/calls"
    ;;
  move)
    echo "move $2" >> "$FAKE_STATE/calls"
    case "$2" in
      test) echo "Test result: OK. Total tests: 1"; exit "${FAKE_MOVE_TEST_EXIT:-0}" ;;
      build) echo '{"modules":["oRzrCwYAAAAK"],"dependencies":["0x2"]}' ;;
    esac
    ;;
  start)
    echo $$ > "$FAKE_STATE/validator.pid"
    exec sleep 60
    ;;
  --version)
    echo "sui 1.22.0-deadbeef"
    ;;
esac
`

const fakeNpm = `#!/bin/sh
echo "npm $*" >> "$FAKE_STATE/calls"
printf '%s' "$SUI_KEYSTORE" > "$FAKE_STATE/keystore"
printf '%s' "$SUI_BUILD" > "$FAKE_STATE/build"
if [ -n "$FAKE_NPM_SIGNAL" ]; then
  kill -"$FAKE_NPM_SIGNAL" $$
fi
exit "${FAKE_NPM_EXIT:-0}"
`

// setupTestEnv creates isolated temp directories, installs the fake programs
// on PATH, and sets environment variables so all ika operations are
// sandboxed. The env vars are restored after the test.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake toolchain is written as sh scripts")
	}

	env := &testEnv{
		HomeDir:    t.TempDir(),
		BinDir:     t.TempDir(),
		StateDir:   t.TempDir(),
		ProjectDir: filepath.Join(t.TempDir(), "counter"),
	}

	writeExecutable(t, filepath.Join(env.BinDir, "sui"), fakeSui)
	writeExecutable(t, filepath.Join(env.BinDir, "npm"), fakeNpm)

	t.Setenv("HOME", env.HomeDir)
	t.Setenv("PATH", env.BinDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Setenv("FAKE_STATE", env.StateDir)

	return env
}

// listen opens a TCP listener standing in for the validator's RPC port.
func listen(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String()
}

// closedAddr returns an address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

// calls returns the commands recorded by the fake programs.
func calls(t *testing.T, env *testEnv) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(env.StateDir, "calls"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("reading calls: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func writeExecutable(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// readState reads a file written by the fake programs.
func readState(t *testing.T, env *testEnv, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(env.StateDir, name))
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	return string(data)
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file NOT to exist: %s", path)
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}
