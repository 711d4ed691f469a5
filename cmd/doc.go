// Package cmd implements the command-line interface of sKV. It provides a
// hierarchical command structure for running the server and talking to it.
//
// The package is organized into several subpackages:
//
//   - serve: Starts the server, configured by flags or SKV_ environment variables
//   - kv: One command per server command (get, set, zadd, zquery, ...), a raw
//     command for arbitrary requests and the perf benchmark tool
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See skv -help for a list of all commands.
package cmd
