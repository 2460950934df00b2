package reader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pders01/ranobe/internal/debuglog"
	"github.com/pders01/ranobe/internal/storage"
)

const (
	PositionKeyPrefix = "reading-position-"
	SaveInterval      = 10 * time.Second
)

func PositionKey(chapterID string) string { return PositionKeyPrefix + chapterID }

// ReadingPosition is the last known scroll offset of a chapter. The chapter
// id lives in the storage key, not in the stored document.
type ReadingPosition struct {
	ChapterID string   `json:"-"`
	ScrollY   float64  `json:"scrollY"`
	Progress  *float64 `json:"progress,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

func (p ReadingPosition) Time() time.Time { return time.UnixMilli(p.Timestamp) }

type PositionMemory struct {
	kv  KV
	now func() time.Time
}

func NewPositionMemory(kv KV) *PositionMemory {
	return &PositionMemory{kv: kv, now: time.Now}
}

// Save overwrites the stored position for chapterID. A negative progress is
// left out of the record.
func (m *PositionMemory) Save(chapterID string, scrollY int, progress float64) error {
	rec := ReadingPosition{ScrollY: float64(scrollY), Timestamp: m.now().UnixMilli()}
	if progress >= 0 {
		p := math.Round(progress*100) / 100
		rec.Progress = &p
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding position: %w", err)
	}
	if err := m.kv.SetItem(PositionKey(chapterID), string(data)); err != nil {
		return fmt.Errorf("saving position for %s: %w", chapterID, err)
	}
	return nil
}

// Restore returns the saved offset for chapterID. Unknown chapters and
// unreadable records both report ok=false.
func (m *PositionMemory) Restore(chapterID string) (int, bool) {
	rec, err := m.get(chapterID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			debuglog.Warnf("restoring position for %s: %v", chapterID, err)
		}
		return 0, false
	}
	if rec.ScrollY > math.MaxInt32 {
		debuglog.Warnf("restoring position for %s: offset %g out of range", chapterID, rec.ScrollY)
		return 0, false
	}
	if rec.ScrollY < 0 {
		return 0, true
	}
	return int(math.Round(rec.ScrollY)), true
}

func (m *PositionMemory) get(chapterID string) (*ReadingPosition, error) {
	raw, err := m.kv.GetItem(PositionKey(chapterID))
	if err != nil {
		return nil, err
	}
	var rec ReadingPosition
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("parsing position record: %w", err)
	}
	rec.ChapterID = chapterID
	return &rec, nil
}

// Get returns the full stored record for chapterID.
func (m *PositionMemory) Get(chapterID string) (*ReadingPosition, error) {
	return m.get(chapterID)
}

// List returns every readable stored position, newest first.
func (m *PositionMemory) List() ([]ReadingPosition, error) {
	keys, err := m.kv.Keys(PositionKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing positions: %w", err)
	}
	out := make([]ReadingPosition, 0, len(keys))
	for _, k := range keys {
		rec, err := m.get(strings.TrimPrefix(k, PositionKeyPrefix))
		if err != nil {
			debuglog.Warnf("skipping %s: %v", k, err)
			continue
		}
		out = append(out, *rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

// Prune keeps the keep most recently saved positions and deletes the rest,
// unreadable records first. Positions of the pinned chapters are never
// removed and count towards keep. It returns the number of records removed.
func (m *PositionMemory) Prune(keep int, pinned ...string) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must not be negative, got %d", keep)
	}
	keys, err := m.kv.Keys(PositionKeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("listing positions: %w", err)
	}

	pin := make(map[string]bool, len(pinned))
	for _, id := range pinned {
		pin[PositionKey(id)] = true
	}

	type entry struct {
		key    string
		ts     int64
		pinned bool
	}
	entries := make([]entry, 0, len(keys))
	for _, k := range keys {
		var ts int64 = math.MinInt64
		if rec, err := m.get(strings.TrimPrefix(k, PositionKeyPrefix)); err == nil {
			ts = rec.Timestamp
		}
		entries = append(entries, entry{key: k, ts: ts, pinned: pin[k]})
	}
	if len(entries) <= keep {
		return 0, nil
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].pinned != entries[j].pinned {
			return entries[i].pinned
		}
		return entries[i].ts > entries[j].ts
	})

	removed := 0
	for _, e := range entries[keep:] {
		if e.pinned {
			continue
		}
		if err := m.kv.RemoveItem(e.key); err != nil {
			return removed, fmt.Errorf("removing %s: %w", e.key, err)
		}
		removed++
	}
	debuglog.Infof("pruned %d reading positions, kept %d", removed, keep)
	return removed, nil
}

// PositionSource reports the current scroll offset and progress percent.
type PositionSource func() (scrollY int, progress float64)

// StartAutosave saves the position of chapterID every interval until ctx is
// done or the returned stop function is called. Stop is safe to call more
// than once and returns after the saving goroutine has exited.
func (m *PositionMemory) StartAutosave(ctx context.Context, chapterID string, interval time.Duration, source PositionSource) (stop func()) {
	if interval <= 0 {
		interval = SaveInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				y, p := source()
				if err := m.Save(chapterID, y, p); err != nil {
					debuglog.Warnf("autosave: %v", err)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
