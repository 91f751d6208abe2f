// Package sources hosts the producer channels that feed game requests to the
// arbiter: the command pipe and socket, NFC readers, optical drives, GPIO
// buttons, drop folders and serial devices.
//
// Device sources poll and pass observations through a debounce machine so a
// tag left on a reader or a disc left in a drive yields one request. Every
// source hands requests over with a non-blocking Offer; a busy arbiter drops
// them rather than stalling the device loop.
package sources
