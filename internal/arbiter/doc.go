// Package arbiter turns a stream of game requests from many producers into
// at most one launch at a time.
//
// A single goroutine (Run) owns the session. Producers hand requests over
// through a bounded queue with Offer, which never blocks; when the queue is
// full the new request is dropped and logged. Interactive callers use Submit
// to wait for the outcome. While a request is being resolved, launched or is
// waiting for the player to pick between close matches, every new request is
// answered Busy.
//
// Lookups are keyed by identifier type: serials match exactly, titles are
// fuzzy-ranked against the system's catalog, and UIDs, hashes, barcodes and
// custom keywords resolve through catalog aliases. The custom keyword
// "random" picks any entry of the requested system.
//
// A launch is acknowledged when the launcher returns. If that does not happen
// within the launch timeout the session is cleared anyway and logged as
// stuck, so one wedged launcher can never block the arbiter for good.
package arbiter
