package debounce

import (
	"fmt"
	"time"
)

// Mode selects tap or hold semantics.
type Mode int

const (
	// Tap launches once per physical event.
	Tap Mode = iota
	// Hold launches on presentation and exits the game on removal.
	Hold
)

func (m Mode) String() string {
	switch m {
	case Tap:
		return "tap"
	case Hold:
		return "hold"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a config value to a Mode.
func ParseMode(value string) (Mode, error) {
	switch value {
	case "", "tap":
		return Tap, nil
	case "hold":
		return Hold, nil
	default:
		return Tap, fmt.Errorf("unknown debounce mode %q", value)
	}
}

// Phase is the gating state of one physical channel.
type Phase int

const (
	Idle Phase = iota
	Candidate
	Latched
	Cooldown
	Held
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Candidate:
		return "candidate"
	case Latched:
		return "latched"
	case Cooldown:
		return "cooldown"
	case Held:
		return "held"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Event is the outcome of feeding one observation to a Machine.
type Event int

const (
	EventNone Event = iota
	// EventAccept means the caller must emit exactly one request.
	EventAccept
	// EventExit means the held identifier was removed long enough to exit.
	EventExit
)

func (e Event) String() string {
	switch e {
	case EventNone:
		return "none"
	case EventAccept:
		return "accept"
	case EventExit:
		return "exit"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

// Config parameterizes a Machine for one source.
type Config struct {
	Debounce       time.Duration
	Cooldown       time.Duration
	RemovalTimeout time.Duration
	Mode           Mode
}

// SourceState is a snapshot of a channel's gating state.
type SourceState struct {
	Phase               Phase
	LastIdentifier      string
	FirstSeenAt         time.Time
	LastSeenAt          time.Time
	LaunchedThisSession bool
}

// Machine gates raw presence observations of one physical channel. It is
// owned by a single producer goroutine and is not safe for concurrent use.
type Machine struct {
	cfg        Config
	state      SourceState
	acceptedAt time.Time
}

// New returns a Machine in the Idle phase.
func New(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// Config returns the parameters the machine was built with.
func (m *Machine) Config() Config {
	return m.cfg
}

// State returns a copy of the current state.
func (m *Machine) State() SourceState {
	return m.state
}

// Reset discards all state, as on daemon restart or reader reconnect.
func (m *Machine) Reset() {
	m.state = SourceState{}
	m.acceptedAt = time.Time{}
}

// Present records that identifier is physically present at now.
func (m *Machine) Present(now time.Time, identifier string) Event {
	if identifier == "" {
		return m.Absent(now)
	}
	s := &m.state

	switch s.Phase {
	case Idle:
		return m.startCandidate(now, identifier)

	case Candidate:
		if identifier != s.LastIdentifier {
			return m.startCandidate(now, identifier)
		}
		s.LastSeenAt = now
		if now.Sub(s.FirstSeenAt) >= m.cfg.Debounce {
			return m.accept(now)
		}
		return EventNone

	case Latched, Held:
		if identifier != s.LastIdentifier {
			return m.startCandidate(now, identifier)
		}
		s.LastSeenAt = now
		return EventNone

	case Cooldown:
		if identifier != s.LastIdentifier {
			return m.startCandidate(now, identifier)
		}
		if now.Sub(m.acceptedAt) < m.cfg.Cooldown {
			// Bounce: same event reappeared before the cooldown elapsed.
			s.Phase = Latched
			s.LastSeenAt = now
			return EventNone
		}
		return m.startCandidate(now, identifier)
	}
	return EventNone
}

// Absent records that nothing is present at now.
func (m *Machine) Absent(now time.Time) Event {
	s := &m.state

	switch s.Phase {
	case Candidate:
		m.Reset()
		return EventNone

	case Latched:
		s.Phase = Cooldown
		return EventNone

	case Cooldown:
		if now.Sub(m.acceptedAt) >= m.cfg.Cooldown {
			m.Reset()
		}
		return EventNone

	case Held:
		if now.Sub(s.LastSeenAt) >= m.cfg.RemovalTimeout {
			m.Reset()
			return EventExit
		}
		return EventNone
	}
	return EventNone
}

func (m *Machine) startCandidate(now time.Time, identifier string) Event {
	m.state = SourceState{
		Phase:          Candidate,
		LastIdentifier: identifier,
		FirstSeenAt:    now,
		LastSeenAt:     now,
	}
	if m.cfg.Debounce <= 0 {
		return m.accept(now)
	}
	return EventNone
}

func (m *Machine) accept(now time.Time) Event {
	m.acceptedAt = now
	m.state.LaunchedThisSession = true
	if m.cfg.Mode == Hold {
		m.state.Phase = Held
	} else {
		m.state.Phase = Latched
	}
	return EventAccept
}
