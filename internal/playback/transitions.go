package playback

import "github.com/syeo66/voidweaver-sub001/internal/model"

// State is an alias to the shared PlaybackState sum type so this package's
// transition table can be read standalone.
type State = model.PlaybackState

// Event is a state-machine input: either a user command or a decoder
// notification.
type Event int

const (
	EventPlay Event = iota
	EventPause
	EventStop
	EventSkip
	EventSourceReady
	EventError
	EventCompleted
)

func (e Event) String() string {
	switch e {
	case EventPlay:
		return "play"
	case EventPause:
		return "pause"
	case EventStop:
		return "stop"
	case EventSkip:
		return "skip"
	case EventSourceReady:
		return "source_ready"
	case EventError:
		return "error"
	case EventCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// anyState marks a transition's From as matching every state; it is never
// a legal actual state, only a table wildcard.
const anyState State = -1

// Transition is one declarative row of the state machine: From any state
// matching anyState, or an explicit state.
type Transition struct {
	From   State
	To     State
	Event  Event
	Reason string
}

// table is the state machine in full, mirroring spec's diagram: explicit
// rows for the documented edges, plus a stop-from-anywhere wildcard and a
// skip-from-anywhere wildcard (skip-in-progress forces Loading regardless
// of the state it interrupted).
var table = []Transition{
	{From: model.Stopped, To: model.Loading, Event: EventPlay, Reason: "user requested playback"},
	{From: model.Paused, To: model.Playing, Event: EventPlay, Reason: "resume"},
	{From: model.Loading, To: model.Playing, Event: EventSourceReady, Reason: "decoder reported ready"},
	{From: model.Loading, To: model.Stopped, Event: EventError, Reason: "prepare or play failed"},
	{From: model.Playing, To: model.Paused, Event: EventPause, Reason: "user paused"},
	{From: model.Playing, To: model.Stopped, Event: EventCompleted, Reason: "track completed, no next track"},
	{From: anyState, To: model.Loading, Event: EventSkip, Reason: "skip in progress"},
	{From: anyState, To: model.Stopped, Event: EventStop, Reason: "explicit stop"},
}

// TransitionFor looks up the transition for (from, event), preferring an
// exact match over a wildcard.
func TransitionFor(from State, event Event) (Transition, bool) {
	var wildcard *Transition
	for i := range table {
		t := table[i]
		if t.Event != event {
			continue
		}
		if t.From == from {
			return t, true
		}
		if t.From == anyState {
			wc := t
			wildcard = &wc
		}
	}
	if wildcard != nil {
		return *wildcard, true
	}
	return Transition{}, false
}
