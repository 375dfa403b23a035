package debounce

import "sync/atomic"

// Guard is an advisory re-entrancy flag. A caller that fails TryEnter
// should short-circuit: an equivalent call is already running. It is not
// a lock and does not queue.
type Guard struct {
	active atomic.Bool
}

// TryEnter marks the guard active and reports whether the caller got in.
func (g *Guard) TryEnter() bool {
	return g.active.CompareAndSwap(false, true)
}

// Leave clears the guard.
func (g *Guard) Leave() {
	g.active.Store(false)
}

// Active reports whether a guarded call is running.
func (g *Guard) Active() bool {
	return g.active.Load()
}
