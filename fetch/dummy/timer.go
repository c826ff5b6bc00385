package dummy

import (
	"errors"
	"sync"
	"time"
)

type event struct {
	t time.Time
	f func()
}

// Timer is a virtual clock. Time only advances through MoveForward, which
// runs the events whose deadline has passed.
type Timer struct {
	now    time.Time
	events []event
	lock   sync.Mutex
}

func NewTimer() *Timer {
	return &Timer{
		now:    time.Unix(0, 0).UTC(),
		events: make([]event, 0),
	}
}

func (tm *Timer) Now() time.Time {
	tm.lock.Lock()
	defer tm.lock.Unlock()
	return tm.now
}

// MoveForward advances the clock by d and fires expired events. An event
// canceled by an earlier callback in the same pass does not fire.
func (tm *Timer) MoveForward(d time.Duration) {
	tm.lock.Lock()
	tm.now = tm.now.Add(d)
	now := tm.now
	total := len(tm.events)
	tm.lock.Unlock()

	for i := 0; i < total; i++ {
		tm.lock.Lock()
		e := tm.events[i]
		expired := e.f != nil && e.t.Before(now)
		if expired {
			tm.events[i].f = nil
		}
		tm.lock.Unlock()
		if expired {
			e.f()
		}
	}
}

func (tm *Timer) Schedule(d time.Duration, f func()) func() error {
	tm.lock.Lock()
	defer tm.lock.Unlock()

	t := tm.now.Add(d)
	idx := len(tm.events)
	for i := range tm.events {
		if tm.events[i].f == nil {
			idx = i
			break
		}
	}
	if idx == len(tm.events) {
		tm.events = append(tm.events, event{t: t, f: f})
	} else {
		tm.events[idx] = event{t: t, f: f}
	}

	return func() error {
		tm.lock.Lock()
		defer tm.lock.Unlock()
		if idx < len(tm.events) && tm.events[idx].t.Equal(t) && tm.events[idx].f != nil {
			tm.events[idx].f = nil
			return nil
		}
		if t.Before(tm.now) {
			// Already fired.
			return nil
		}
		return errors.New("event has already been canceled")
	}
}

func (tm *Timer) Sleep(d time.Duration) {
	ch := make(chan struct{})
	tm.Schedule(d, func() {
		close(ch)
	})
	<-ch
}

func (tm *Timer) Nonce() []byte {
	return []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
}
