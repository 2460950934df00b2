package reader

import (
	"sync"
	"time"
)

const (
	// FrameInterval is the terminal stand-in for one animation frame.
	FrameInterval     = 16 * time.Millisecond
	ScrolledThreshold = 50
)

// ScrollSample is one raw scroll observation, measured in rendered lines.
type ScrollSample struct {
	ScrollTop      int
	DocumentHeight int
	WindowHeight   int
}

type ScrollState struct {
	ProgressPercent float64
	IsScrolled      bool
	IsNavbarVisible bool
}

// ComputeProgress returns how far through the document the sample is, in
// [0,100]. A document that fits the window has progress 0.
func ComputeProgress(s ScrollSample) float64 {
	maxScroll := s.DocumentHeight - s.WindowHeight
	if maxScroll <= 0 {
		return 0
	}
	p := float64(s.ScrollTop) / float64(maxScroll) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

type TelemetryOptions struct {
	ScrolledThreshold int
	Navbar            NavbarOptions
}

func DefaultTelemetryOptions() TelemetryOptions {
	return TelemetryOptions{
		ScrolledThreshold: ScrolledThreshold,
		Navbar:            DefaultNavbarOptions(),
	}
}

// Telemetry coalesces raw scroll samples into at most one recompute per
// frame. Observe records the latest sample; the caller schedules a frame
// only when Observe reports that none is pending, then calls Flush when
// the frame fires. Samples arriving in between overwrite each other.
type Telemetry struct {
	mu        sync.Mutex
	opts      TelemetryOptions
	latest    ScrollSample
	pending   bool
	closed    bool
	navbar    *Navbar
	state     ScrollState
	subs      map[int]func(ScrollState)
	nextSubID int
}

func NewTelemetry(opts TelemetryOptions) *Telemetry {
	return &Telemetry{
		opts:   opts,
		navbar: NewNavbar(opts.Navbar),
		state:  ScrollState{IsNavbarVisible: true},
		subs:   make(map[int]func(ScrollState)),
	}
}

// Observe records s as the latest sample and reports whether the caller
// must schedule a frame.
func (t *Telemetry) Observe(s ScrollSample) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.latest = s
	if t.pending {
		return false
	}
	t.pending = true
	return true
}

// Pending reports whether a frame is scheduled but not yet flushed.
func (t *Telemetry) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// Flush recomputes the derived state from the latest sample. The second
// result is false when nothing was pending or the telemetry is closed.
func (t *Telemetry) Flush() (ScrollState, bool) {
	t.mu.Lock()
	if t.closed || !t.pending {
		st := t.state
		t.mu.Unlock()
		return st, false
	}
	t.pending = false
	sample := t.latest
	t.state = ScrollState{
		ProgressPercent: ComputeProgress(sample),
		IsScrolled:      sample.ScrollTop > t.opts.ScrolledThreshold,
		IsNavbarVisible: t.navbar.Step(sample.ScrollTop) == NavbarVisible,
	}
	st := t.state
	fns := make([]func(ScrollState), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
	return st, true
}

func (t *Telemetry) State() ScrollState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Telemetry) Subscribe(fn func(ScrollState)) func() {
	t.mu.Lock()
	id := t.nextSubID
	t.nextSubID++
	t.subs[id] = fn
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// Close cancels any pending recompute and drops all subscribers. Later
// calls to Observe and Flush do nothing.
func (t *Telemetry) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.pending = false
	t.subs = make(map[int]func(ScrollState))
}
