// Package preflight verifies the host before the daemon starts serving:
// writable state directories, the MiSTer command FIFO, device nodes for
// configured sources, external binaries and push endpoints.
//
// Checks never fail the daemon. Callers log or render the results.
package preflight
