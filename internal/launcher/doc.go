// Package launcher turns a resolved catalog entry into a running core.
//
// The MiSTer implementation writes an MGL descriptor atomically into a
// scratch directory and then asks the MiSTer main process to load it by
// writing "load_core <file>" to its command FIFO. Delivery of that command is
// the acknowledgement the arbiter waits for. The Log implementation records
// directives without touching the platform and backs dry runs and tests.
package launcher
