// Package systems holds the static table of MiSTer cores: system IDs and
// aliases, core RBF paths, games folders, accepted extensions and the MGL
// file slot each core expects.
package systems
