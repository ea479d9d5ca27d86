package acquire

import "fmt"

// State is the coordinator lifecycle state.
type State int

const (
	Idle State = iota
	LinkOpen
	Running
	ReadInFlight
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LinkOpen:
		return "link open"
	case Running:
		return "running"
	case ReadInFlight:
		return "read in flight"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Active reports whether a session is in progress.
func (s State) Active() bool {
	return s == Running || s == ReadInFlight || s == Stopping
}
