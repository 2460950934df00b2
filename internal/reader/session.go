package reader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pders01/ranobe/internal/debuglog"
)

var generations atomic.Uint64

type SessionOptions struct {
	SaveInterval time.Duration
	Telemetry    TelemetryOptions
	// MaxPositions caps stored reading positions when a session opens.
	// Zero keeps every position.
	MaxPositions int
}

func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		SaveInterval: SaveInterval,
		Telemetry:    DefaultTelemetryOptions(),
	}
}

type SessionDeps struct {
	Settings  *SettingsStore
	Positions *PositionMemory
	Options   SessionOptions
}

// Session owns the per-chapter reading state: scroll telemetry, the navbar
// machine and the position autosaver. It is created when a chapter is
// opened and must be closed when the reader leaves it.
type Session struct {
	chapterID  string
	generation uint64
	deps       SessionDeps
	telemetry  *Telemetry

	mu          sync.Mutex
	lastSample  ScrollSample
	restore     int
	hasRestore  bool
	unsubscribe []func()
	stopSave    func()
	closed      bool
}

func NewSession(ctx context.Context, deps SessionDeps, chapterID string) *Session {
	s := &Session{
		chapterID:  chapterID,
		generation: generations.Add(1),
		deps:       deps,
		telemetry:  NewTelemetry(deps.Options.Telemetry),
	}

	if deps.Positions != nil {
		s.restore, s.hasRestore = deps.Positions.Restore(chapterID)
		if deps.Options.MaxPositions > 0 {
			if _, err := deps.Positions.Prune(deps.Options.MaxPositions, chapterID); err != nil {
				debuglog.Warnf("pruning positions: %v", err)
			}
		}
		s.stopSave = deps.Positions.StartAutosave(ctx, chapterID, deps.Options.SaveInterval, s.position)
	}

	debuglog.WithFields(map[string]interface{}{
		"chapter":    chapterID,
		"generation": s.generation,
	}).Debugf("reader session opened")
	return s
}

func (s *Session) ChapterID() string  { return s.chapterID }
func (s *Session) Generation() uint64 { return s.generation }

func (s *Session) position() (int, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSample.ScrollTop, ComputeProgress(s.lastSample)
}

// Observe forwards a raw scroll sample. It reports whether the caller must
// schedule a frame for this session.
func (s *Session) Observe(sample ScrollSample) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.lastSample = sample
	s.mu.Unlock()
	return s.telemetry.Observe(sample)
}

// Flush runs the pending recompute if the frame belongs to this session.
func (s *Session) Flush(generation uint64) (ScrollState, bool) {
	if generation != s.generation {
		return s.telemetry.State(), false
	}
	return s.telemetry.Flush()
}

func (s *Session) State() ScrollState { return s.telemetry.State() }

func (s *Session) Settings() Settings {
	if s.deps.Settings == nil {
		return DefaultSettings()
	}
	return s.deps.Settings.Get()
}

// OnScroll subscribes to recomputed scroll state until the session closes.
func (s *Session) OnScroll(fn func(ScrollState)) {
	unsub := s.telemetry.Subscribe(fn)
	s.mu.Lock()
	s.unsubscribe = append(s.unsubscribe, unsub)
	s.mu.Unlock()
}

// OnSettings subscribes to settings changes until the session closes.
func (s *Session) OnSettings(fn func(Settings)) {
	if s.deps.Settings == nil {
		return
	}
	unsub := s.deps.Settings.Subscribe(fn)
	s.mu.Lock()
	s.unsubscribe = append(s.unsubscribe, unsub)
	s.mu.Unlock()
}

// PendingRestore hands out the saved offset once. It must only be applied
// after the chapter content has been laid out.
func (s *Session) PendingRestore() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasRestore {
		return 0, false
	}
	s.hasRestore = false
	return s.restore, true
}

// Close stops the autosaver, cancels pending frames and drops subscriptions.
// It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubs := s.unsubscribe
	s.unsubscribe = nil
	stop := s.stopSave
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.telemetry.Close()
	for _, fn := range unsubs {
		fn()
	}
	debuglog.Debugf("reader session closed chapter=%s", s.chapterID)
}
