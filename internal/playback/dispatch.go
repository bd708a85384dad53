package playback

import "github.com/syeo66/voidweaver-sub001/internal/log"

// ApplyTransition looks up the transition for (from, event) and returns
// the resulting state. An event with no legal transition from the
// current state is routed through onIllegalTransition, whose behaviour is
// selected at build time (log-and-hold in release, panic in debug).
func ApplyTransition(from State, event Event) (State, error) {
	t, ok := TransitionFor(from, event)
	if !ok {
		return onIllegalTransition(from, event)
	}
	log.WithComponent("playback").Debug().
		Str("old_state", from.String()).
		Str("new_state", t.To.String()).
		Str("event", event.String()).
		Str("reason", t.Reason).
		Msg("state transition")
	return t.To, nil
}
