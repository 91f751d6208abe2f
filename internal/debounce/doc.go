// Package debounce turns noisy presence observations from one physical
// channel into at most one accepted event per physical interaction.
//
// A Machine starts Idle, enters Candidate on the first observation, and
// accepts once the same identifier has been stable for the debounce window.
// In tap mode the accepted identifier is latched until the signal clears and
// the cooldown (measured from acceptance) has elapsed; a bounce inside the
// cooldown re-latches silently. In hold mode the machine stays Held while the
// identifier keeps reappearing and reports EventExit once it has been absent
// for the removal timeout. A different identifier always starts a fresh
// candidate window.
//
// Callers pass the observation time explicitly so tests drive the machine
// without sleeping.
package debounce
