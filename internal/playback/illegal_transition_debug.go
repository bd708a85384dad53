//go:build debug

package playback

// onIllegalTransition panics in debug builds so an illegal transition is
// caught at the call site during development instead of silently holding
// state.
func onIllegalTransition(from State, event Event) (State, error) {
	panic(illegalTransitionError(from, event))
}
