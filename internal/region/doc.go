// Package region ranks regional variants of a game and pulls region tags out
// of ROM filenames.
package region
