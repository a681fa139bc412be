// Package cmd implements the command-line interface for the reslock
// resource lock manager. It provides a hierarchical command structure with
// operations for running the server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - lock: Commands for lock operations (acquire, release, extend, etc.)
//   - sweep: Commands for maintenance sweeps (expired locks, stale sessions, old history)
//   - stats: Command for aggregated lock statistics
//   - serve: Commands for starting and configuring the reslock server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See reslock -help for a list of all commands.
package cmd
