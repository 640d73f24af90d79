package checkout

import "fmt"

// State is the position of a checkout form in its submission lifecycle
type State int

// Submission states. Redirected and ErrorShown end an attempt.
const (
	StateIdle State = iota
	StateValidating
	StateRequestingIntent
	StateConfirming
	StateRedirected
	StateErrorShown
)

var stateNames = map[State]string{
	StateIdle:             "idle",
	StateValidating:       "validating",
	StateRequestingIntent: "requesting_intent",
	StateConfirming:       "confirming",
	StateRedirected:       "redirected",
	StateErrorShown:       "error_shown",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// InFlight reports whether an attempt is running
func (s State) InFlight() bool {
	return s == StateValidating || s == StateRequestingIntent || s == StateConfirming
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name
func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown checkout state %q", text)
}
