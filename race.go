package fontobserver

import (
	"github.com/joeycumines/go-fontobserver/dom"
)

type (
	// race guards the settlement of a single detection, allowing any number
	// of competing tasks (polls, timers, event listeners) to attempt it, with
	// only the first having any effect. Cleanups registered via onSettle run
	// (in reverse order) before the outcome is reported, on every exit path.
	//
	// Not safe for concurrent use, as all tasks run on the environment's
	// thread.
	race struct {
		done     func(err error)
		cleanups []func()
		settled  bool
	}

	// raceTimer is a re-armable timeout, that is cleared when its race
	// settles, and never fires after that point
	raceTimer struct {
		race    *race
		window  dom.Window
		id      uint64
		pending bool
	}
)

func newRace(done func(err error)) *race {
	return &race{done: done}
}

// onSettle registers a cleanup. If already settled, fn runs immediately.
func (x *race) onSettle(fn func()) {
	if x.settled {
		fn()
		return
	}
	x.cleanups = append(x.cleanups, fn)
}

// isSettled reports whether a task has already won.
func (x *race) isSettled() bool {
	return x.settled
}

// settle attempts to settle the race, with a nil err indicating success.
// Returns false if the race was already settled.
func (x *race) settle(err error) bool {
	if x.settled {
		return false
	}
	x.settled = true
	for i := len(x.cleanups) - 1; i >= 0; i-- {
		x.cleanups[i]()
	}
	x.cleanups = nil
	x.done(err)
	return true
}

func (x *race) newTimer(window dom.Window) *raceTimer {
	t := &raceTimer{race: x, window: window}
	x.onSettle(t.stop)
	return t
}

// start (re)schedules the timer, replacing any pending callback. If the
// environment refuses the timeout, the race settles with that error.
func (x *raceTimer) start(fn func(), delayMs int) {
	x.stop()
	if x.race.settled {
		return
	}
	var id uint64
	id, err := x.window.SetTimeout(func() {
		if !x.pending || x.id != id {
			return
		}
		x.pending = false
		if !x.race.settled {
			fn()
		}
	}, delayMs)
	if err != nil {
		x.race.settle(err)
		return
	}
	x.id = id
	x.pending = true
}

func (x *raceTimer) stop() {
	if x.pending {
		x.pending = false
		x.window.ClearTimeout(x.id)
	}
}
