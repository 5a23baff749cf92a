package editor

import (
	"sync"
	"time"

	"github.com/gyaneshwarpardhi/flowcanvas/internal/metrics"
)

// Autosaver debounces persistence: every Touch restarts the delay, and the
// save func runs once the edits go quiet. The editor core itself stays
// synchronous; all timing lives here.
type Autosaver struct {
	mu     sync.Mutex
	delay  time.Duration
	save   func() error
	timer  *time.Timer
	dirty  bool
	closed bool
}

// NewAutosaver creates an Autosaver that invokes save after delay of
// inactivity following a Touch.
func NewAutosaver(delay time.Duration, save func() error) *Autosaver {
	return &Autosaver{delay: delay, save: save}
}

// Touch marks the flow dirty and restarts the debounce window.
func (a *Autosaver) Touch() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.dirty = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, a.fire)
}

func (a *Autosaver) fire() {
	a.mu.Lock()
	if a.closed || !a.dirty {
		a.mu.Unlock()
		return
	}
	a.dirty = false
	a.mu.Unlock()
	a.runSave()
}

// Flush saves immediately if there are unsaved edits.
func (a *Autosaver) Flush() {
	a.mu.Lock()
	if !a.dirty {
		a.mu.Unlock()
		return
	}
	a.dirty = false
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()
	a.runSave()
}

// Close flushes pending edits and stops the timer for good.
func (a *Autosaver) Close() {
	a.Flush()
	a.mu.Lock()
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()
}

func (a *Autosaver) runSave() {
	if err := a.save(); err != nil {
		metrics.AutosaveFlushes.WithLabelValues("error").Inc()
		return
	}
	metrics.AutosaveFlushes.WithLabelValues("success").Inc()
}
