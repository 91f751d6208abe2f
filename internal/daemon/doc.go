// Package daemon coordinates the long-running arbiter process.
//
// It wires configuration, the catalog store, the launcher, notifications,
// metrics, every configured request source and the optional HTTP surface
// into one errgroup lifecycle, with flock-based locking to prevent multiple
// instances.
//
// Keep orchestration here: resolution rules live in the arbiter and device
// handling lives in the sources package.
package daemon
