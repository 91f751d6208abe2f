// Package textutil provides filename and token sanitization shared by the
// launcher and the source adapters.
package textutil
