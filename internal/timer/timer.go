// Package timer implements the rest timer: a stopwatch or countdown driven by a
// fast ticker, with elapsed time always derived from the clock rather than
// summed per tick.
package timer

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	// TickInterval is roughly one display frame
	TickInterval = 16 * time.Millisecond
	// NotifyInterval caps OnTick at 10 calls per second
	NotifyInterval = 100 * time.Millisecond
)

var (
	ErrInvalidDuration   = errors.New("countdown duration must be positive")
	ErrInvalidTransition = errors.New("invalid timer transition")
)

type Mode int

const (
	Stopwatch Mode = iota
	Countdown
)

func (m Mode) String() string {
	if m == Countdown {
		return "countdown"
	}
	return "stopwatch"
}

type State int

const (
	Idle State = iota
	Running
	Paused
	Stopped
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Snapshot is the timer's position at one instant
type Snapshot struct {
	Mode      Mode
	State     State
	Duration  time.Duration
	Elapsed   time.Duration
	Remaining time.Duration // countdown only
}

type Options struct {
	Mode     Mode
	Duration time.Duration // required for Countdown

	OnTick     func(Snapshot) // throttled to NotifyInterval
	OnComplete func(Snapshot) // countdown only, fires once

	Clock        func() time.Time // defaults to time.Now
	TickInterval time.Duration    // defaults to TickInterval
}

// Timer is safe for concurrent use. Callbacks run on the tick goroutine
// without the timer's lock held.
type Timer struct {
	mu   sync.Mutex
	opts Options

	state       State
	accumulated time.Duration
	startedAt   time.Time
	lastNotify  time.Time

	gen  uint64
	stop chan struct{}
	done chan struct{}
}

func New(opts Options) (*Timer, error) {
	if opts.Mode == Countdown && opts.Duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = TickInterval
	}
	return &Timer{opts: opts}, nil
}

// Start runs the timer from idle or resumes it from paused
func (t *Timer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Idle && t.state != Paused {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, t.state)
	}

	t.state = Running
	t.startedAt = t.opts.Clock()
	t.lastNotify = time.Time{}

	t.gen++
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.run(t.gen, t.stop, t.done)
	return nil
}

// Pause freezes elapsed time until the next Start
func (t *Timer) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Running {
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, t.state)
	}
	t.accumulated = t.elapsedLocked(t.opts.Clock())
	t.state = Paused
	t.halt()
	return nil
}

// Stop ends a running or paused timer, keeping its final elapsed time
func (t *Timer) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case Running:
		t.accumulated = t.elapsedLocked(t.opts.Clock())
	case Paused:
	default:
		return fmt.Errorf("%w: stop from %s", ErrInvalidTransition, t.state)
	}
	t.state = Stopped
	t.halt()
	return nil
}

// Reset returns the timer to idle from any state
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.halt()
	t.state = Idle
	t.accumulated = 0
	t.startedAt = time.Time{}
}

// Close stops the tick goroutine and waits for it to exit.
// It must not be called from OnTick or OnComplete.
func (t *Timer) Close() {
	t.mu.Lock()
	done := t.done
	if t.state == Running {
		t.accumulated = t.elapsedLocked(t.opts.Clock())
		t.state = Stopped
	}
	t.halt()
	t.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked(t.opts.Clock())
}

// halt signals the current tick goroutine; caller holds mu
func (t *Timer) halt() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.gen++
}

func (t *Timer) run(gen uint64, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !t.step(gen) {
				return
			}
		}
	}
}

// step advances one tick and reports whether ticking should continue
func (t *Timer) step(gen uint64) bool {
	t.mu.Lock()
	if gen != t.gen || t.state != Running {
		t.mu.Unlock()
		return false
	}

	now := t.opts.Clock()
	snap := t.snapshotLocked(now)

	if t.opts.Mode == Countdown && snap.Remaining <= 0 {
		t.accumulated = t.opts.Duration
		t.state = Completed
		if t.stop != nil {
			close(t.stop)
			t.stop = nil
		}
		t.gen++
		snap = t.snapshotLocked(now)
		t.mu.Unlock()

		if t.opts.OnComplete != nil {
			t.opts.OnComplete(snap)
		}
		return false
	}

	notify := t.lastNotify.IsZero() || now.Sub(t.lastNotify) >= NotifyInterval
	if notify {
		t.lastNotify = now
	}
	t.mu.Unlock()

	if notify && t.opts.OnTick != nil {
		t.opts.OnTick(snap)
	}
	return true
}

func (t *Timer) elapsedLocked(now time.Time) time.Duration {
	if t.state != Running {
		return t.accumulated
	}
	return t.accumulated + now.Sub(t.startedAt)
}

func (t *Timer) snapshotLocked(now time.Time) Snapshot {
	s := Snapshot{
		Mode:     t.opts.Mode,
		State:    t.state,
		Duration: t.opts.Duration,
		Elapsed:  t.elapsedLocked(now),
	}
	if t.opts.Mode == Countdown {
		s.Elapsed = min(s.Elapsed, t.opts.Duration)
		s.Remaining = t.opts.Duration - s.Elapsed
	}
	return s
}
