package hummingbird

// NavState is the navigator's position in its Idle → Fetching → Applying
// cycle.
type NavState int

const (
	StateIdle NavState = iota
	StateFetching
	StateApplying
)

func (s NavState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateApplying:
		return "applying"
	default:
		return "unknown"
	}
}

type navEvent int

const (
	evNavigate navEvent = iota // click, Navigate, fallback or popstate refetch
	evResponse                 // current fetch returned a usable response
	evFailure                  // current fetch failed
	evApplied                  // swap, hydrate and history are done
	evPopState                 // back/forward restored from a snapshot
	evDetach                   // navigator detached with a fetch in flight
)

func (e navEvent) String() string {
	switch e {
	case evNavigate:
		return "navigate"
	case evResponse:
		return "response"
	case evFailure:
		return "failure"
	case evApplied:
		return "applied"
	case evPopState:
		return "popstate"
	case evDetach:
		return "detach"
	default:
		return "unknown"
	}
}

type navTransition struct {
	from  NavState
	event navEvent
	to    NavState
}

// navTransitions is searched in order; the first match wins. Stale responses
// never reach the table.
var navTransitions = []navTransition{
	{StateIdle, evNavigate, StateFetching},
	{StateFetching, evNavigate, StateFetching},
	{StateFetching, evResponse, StateApplying},
	{StateFetching, evFailure, StateIdle},
	{StateApplying, evApplied, StateIdle},
	{StateApplying, evFailure, StateIdle},
	{StateIdle, evPopState, StateApplying},
	{StateFetching, evPopState, StateApplying},
	{StateFetching, evDetach, StateIdle},
}

// nextState returns the target of the first transition matching from and
// ev, or false when the event is not valid in that state.
func nextState(from NavState, ev navEvent) (NavState, bool) {
	for _, t := range navTransitions {
		if t.from == from && t.event == ev {
			return t.to, true
		}
	}
	return from, false
}
