// Package catalog persists the game catalog the arbiter resolves requests
// against.
//
// Entries live in SQLite (WAL mode, embedded schema, version check, busy
// retries) keyed by system. Serials are matched exactly; NFC UIDs, ROM
// hashes, barcodes and custom keywords are stored as aliases. Catalogs are
// filled from JSON, YAML or CSV files via LoadFile, or by walking a MiSTer
// games folder with Scan.
package catalog
