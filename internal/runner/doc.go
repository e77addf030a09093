// Package runner launches the external programs ika depends on (sui, npm,
// git). Run blocks until the program exits and reports its exit status;
// Start launches a long-lived background process and returns a Handle the
// caller owns. A non-zero exit status is reported in Output, never as an error.
package runner
