// Package matching ranks catalog entries against a free-text title query and
// decides whether the best candidate is a clear winner.
package matching
