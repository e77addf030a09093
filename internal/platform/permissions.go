package platform

import (
	"os"
	"runtime"
)

// Chmod sets file permissions. On Windows this is a no-op because Windows
// does not support Unix-style permission bits.
func Chmod(path string, mode os.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return os.Chmod(path, mode)
}

// ExcessPermissions returns the bits of mode not allowed by limit, e.g. 0044
// for a 0644 keystore checked against 0600. It is always zero on Windows.
func ExcessPermissions(mode, limit os.FileMode) os.FileMode {
	if runtime.GOOS == "windows" {
		return 0
	}
	return mode.Perm() &^ limit.Perm()
}
