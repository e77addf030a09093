// Package testrun drives a project's local test run.
//
// A run checks for Move.toml, optionally clears the test ledger, bootstraps
// the ledger with genesis when needed, runs the Move unit tests, and then runs
// the end-to-end phase: start a validator, wait for it to accept connections,
// build the package, and run the project's integration test command with the
// keystore and build output in its environment. The validator is stopped on
// every path out of the end-to-end phase.
//
// Test commands that exit non-zero are reported as *ExitError so the command
// line entry point can exit with the same status.
package testrun
