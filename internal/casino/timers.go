package casino

import (
	"sync"
	"time"
)

// scheduler creates the engine's timers. Timer callbacks only enqueue events
// into the engine's command stream; they never touch round state.
type scheduler interface {
	After(d time.Duration, fn func()) (stop func())
	Every(d time.Duration, fn func()) (stop func())
}

type realScheduler struct{}

func (realScheduler) After(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)

	return func() { t.Stop() }
}

func (realScheduler) Every(d time.Duration, fn func()) func() {
	t := time.NewTicker(d)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-t.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once

	return func() {
		once.Do(func() {
			t.Stop()
			close(done)
		})
	}
}

type timerKind int

const (
	timerCountdown timerKind = iota + 1
	timerUpdate
	timerStep
	timerGrace
)

func (k timerKind) String() string {
	switch k {
	case timerCountdown:
		return "countdown"
	case timerUpdate:
		return "update"
	case timerStep:
		return "step"
	case timerGrace:
		return "grace"
	default:
		return "unknown"
	}
}

type timerEvent struct {
	kind    timerKind
	roundID string
}

// roundTimers tracks the live timers of the current round.
type roundTimers map[timerKind]func()

func (t roundTimers) set(kind timerKind, stop func()) {
	t.stop(kind)
	t[kind] = stop
}

func (t roundTimers) stop(kind timerKind) {
	if stop, ok := t[kind]; ok {
		stop()
		delete(t, kind)
	}
}

func (t roundTimers) stopAll() {
	for kind := range t {
		t.stop(kind)
	}
}
