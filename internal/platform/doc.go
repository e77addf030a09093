// Package platform wraps the file permission operations that differ between
// Unix and Windows. Windows has no Unix permission bits, so the checks there
// always pass and Chmod is a no-op.
package platform
