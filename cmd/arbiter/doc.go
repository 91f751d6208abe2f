// Package main hosts the arbiter CLI entrypoint and command graph.
//
// Request commands (find, select, exit, status) talk to the daemon over its
// Unix socket; send writes to the command pipe. Catalog, score, nfc and
// config commands work offline against local files and the catalog database.
package main
