package playback

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is wrapped into the error returned (or the value
// panicked with, in debug builds) when an event has no matching row for
// the current state.
var ErrIllegalTransition = errors.New("playback: illegal state transition")

func illegalTransitionError(from State, event Event) error {
	return fmt.Errorf("%w: from=%s event=%s", ErrIllegalTransition, from, event)
}
