// Package logs reads the daemon log file for `arbiter logs`: the last N
// lines, then optionally every line appended afterwards. Follow mode wakes on
// fsnotify write events and survives the file being recreated.
package logs
