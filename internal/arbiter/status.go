package arbiter

import (
	"fmt"
	"time"

	"gamearbiter/internal/catalog"
	"gamearbiter/internal/launcher"
	"gamearbiter/internal/request"
)

// Phase is the session state.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseResolving Phase = "resolving"
	PhaseLaunching Phase = "launching"
	PhaseSelecting Phase = "selecting"
)

// Outcome is the answer to one submitted request.
type Outcome int

const (
	Accepted Outcome = iota + 1
	Busy
	NotFound
	Ambiguous
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Busy:
		return "busy"
	case NotFound:
		return "not_found"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result describes how a request was handled.
type Result struct {
	RequestID string              `json:"request_id"`
	Outcome   Outcome             `json:"outcome"`
	Request   request.GameRequest `json:"request"`
	Entry     *catalog.Entry      `json:"entry,omitempty"`
	Score     int                 `json:"score,omitempty"`
	Choices   []catalog.Entry     `json:"choices,omitempty"`
	Reason    string              `json:"reason,omitempty"`
}

// Stats counts outcomes since start.
type Stats struct {
	Accepted       int64 `json:"accepted"`
	Busy           int64 `json:"busy"`
	NotFound       int64 `json:"not_found"`
	Ambiguous      int64 `json:"ambiguous"`
	Dropped        int64 `json:"dropped"`
	LaunchTimeouts int64 `json:"launch_timeouts"`
	LaunchFailures int64 `json:"launch_failures"`
}

// Status is a point-in-time snapshot of the arbiter.
type Status struct {
	Phase      Phase                `json:"phase"`
	RequestID  string               `json:"request_id,omitempty"`
	Request    *request.GameRequest `json:"request,omitempty"`
	Since      time.Time            `json:"since,omitzero"`
	Choices    []catalog.Entry      `json:"choices,omitempty"`
	LastLaunch *LaunchRecord        `json:"last_launch,omitempty"`
	QueueDepth int                  `json:"queue_depth"`
	Stats      Stats                `json:"stats"`
}

// LaunchRecord remembers the most recent acknowledged launch.
type LaunchRecord struct {
	Directive  launcher.Directive `json:"directive"`
	Source     string             `json:"source"`
	LaunchedAt time.Time          `json:"launched_at"`
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	for _, candidate := range []Outcome{Accepted, Busy, NotFound, Ambiguous} {
		if candidate.String() == string(text) {
			*o = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", string(text))
}
