package painter

import (
	"sync"
	"time"
)

// debouncer runs fn on the first call of a burst and swallows the calls
// that follow until wait passed without one.
type debouncer struct {
	mu      sync.Mutex
	wait    time.Duration
	fn      func()
	timer   *time.Timer
	stopped bool
}

func newDebouncer(wait time.Duration, fn func()) *debouncer {
	return &debouncer{wait: wait, fn: fn}
}

func (d *debouncer) Call() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Reset(d.wait)
		d.mu.Unlock()
		return
	}
	d.timer = time.AfterFunc(d.wait, d.quiet)
	d.mu.Unlock()

	d.fn()
}

func (d *debouncer) quiet() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timer = nil
}

func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
