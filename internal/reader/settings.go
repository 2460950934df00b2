package reader

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/pders01/ranobe/internal/debuglog"
	"github.com/pders01/ranobe/internal/storage"
)

const SettingsKey = "reading-settings"

// KV is the local key-value storage the reader persists into.
// GetItem must return an error wrapping storage.ErrNotFound for missing keys.
type KV interface {
	GetItem(key string) (string, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
	Keys(prefix string) ([]string, error)
}

type FontFamily string

const (
	FontSerif     FontFamily = "serif"
	FontSansSerif FontFamily = "sans-serif"
	FontMono      FontFamily = "mono"
)

type MaxWidth string

const (
	WidthNarrow MaxWidth = "narrow"
	WidthMedium MaxWidth = "medium"
	WidthWide   MaxWidth = "wide"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeSepia Theme = "sepia"
	ThemeNight Theme = "night"
)

type TextAlign string

const (
	AlignLeft    TextAlign = "left"
	AlignJustify TextAlign = "justify"
)

type AutoScrollSpeed string

const (
	ScrollOff    AutoScrollSpeed = "off"
	ScrollSlow   AutoScrollSpeed = "slow"
	ScrollMedium AutoScrollSpeed = "medium"
	ScrollFast   AutoScrollSpeed = "fast"
)

var (
	FontFamilies     = []FontFamily{FontSerif, FontSansSerif, FontMono}
	MaxWidths        = []MaxWidth{WidthNarrow, WidthMedium, WidthWide}
	Themes           = []Theme{ThemeLight, ThemeDark, ThemeSepia, ThemeNight}
	TextAligns       = []TextAlign{AlignLeft, AlignJustify}
	AutoScrollSpeeds = []AutoScrollSpeed{ScrollOff, ScrollSlow, ScrollMedium, ScrollFast}
)

const (
	MinFontSize    = 14
	MaxFontSize    = 26
	FontSizeStep   = 2
	MinLineHeight  = 1.4
	MaxLineHeight  = 2.4
	LineHeightStep = 0.1

	baseFontSize = 18
)

type Settings struct {
	FontFamily      FontFamily      `json:"font_family"`
	FontSize        int             `json:"font_size"`
	LineHeight      float64         `json:"line_height"`
	MaxWidth        MaxWidth        `json:"max_width"`
	Theme           Theme           `json:"theme"`
	TextAlign       TextAlign       `json:"text_align"`
	AutoScrollSpeed AutoScrollSpeed `json:"auto_scroll_speed"`
}

func DefaultSettings() Settings {
	return Settings{
		FontFamily:      FontSerif,
		FontSize:        18,
		LineHeight:      1.8,
		MaxWidth:        WidthMedium,
		Theme:           ThemeLight,
		TextAlign:       AlignLeft,
		AutoScrollSpeed: ScrollOff,
	}
}

// SettingsPatch is a partial update. Nil fields leave the current value alone.
type SettingsPatch struct {
	FontFamily      *FontFamily      `json:"font_family,omitempty"`
	FontSize        *int             `json:"font_size,omitempty"`
	LineHeight      *float64         `json:"line_height,omitempty"`
	MaxWidth        *MaxWidth        `json:"max_width,omitempty"`
	Theme           *Theme           `json:"theme,omitempty"`
	TextAlign       *TextAlign       `json:"text_align,omitempty"`
	AutoScrollSpeed *AutoScrollSpeed `json:"auto_scroll_speed,omitempty"`
}

// Apply merges the patch over s. Values are taken as given.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.FontFamily != nil {
		s.FontFamily = *p.FontFamily
	}
	if p.FontSize != nil {
		s.FontSize = *p.FontSize
	}
	if p.LineHeight != nil {
		s.LineHeight = *p.LineHeight
	}
	if p.MaxWidth != nil {
		s.MaxWidth = *p.MaxWidth
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.TextAlign != nil {
		s.TextAlign = *p.TextAlign
	}
	if p.AutoScrollSpeed != nil {
		s.AutoScrollSpeed = *p.AutoScrollSpeed
	}
	return s
}

func WithTheme(t Theme) SettingsPatch                { return SettingsPatch{Theme: &t} }
func WithFontFamily(f FontFamily) SettingsPatch      { return SettingsPatch{FontFamily: &f} }
func WithFontSize(n int) SettingsPatch               { return SettingsPatch{FontSize: &n} }
func WithLineHeight(x float64) SettingsPatch         { return SettingsPatch{LineHeight: &x} }
func WithMaxWidth(w MaxWidth) SettingsPatch          { return SettingsPatch{MaxWidth: &w} }
func WithTextAlign(a TextAlign) SettingsPatch        { return SettingsPatch{TextAlign: &a} }
func WithAutoScroll(v AutoScrollSpeed) SettingsPatch { return SettingsPatch{AutoScrollSpeed: &v} }

// SettingsStore holds the reader preferences and writes every mutation through
// to the local key-value storage.
type SettingsStore struct {
	mu       sync.RWMutex
	kv       KV
	current  Settings
	defaults Settings
	subs     map[int]func(Settings)
	nextSub  int
}

// NewSettingsStore loads persisted settings. A missing or unreadable blob
// yields defaults; fields absent from the blob are filled from defaults.
func NewSettingsStore(kv KV) *SettingsStore {
	return NewSettingsStoreWithDefaults(kv, DefaultSettings())
}

// NewSettingsStoreWithDefaults is NewSettingsStore with configured defaults.
func NewSettingsStoreWithDefaults(kv KV, defaults Settings) *SettingsStore {
	s := &SettingsStore{
		kv:       kv,
		defaults: defaults,
		current:  defaults,
		subs:     make(map[int]func(Settings)),
	}
	s.current = s.load()
	return s
}

func (s *SettingsStore) load() Settings {
	raw, err := s.kv.GetItem(SettingsKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			debuglog.Warnf("reading %s: %v", SettingsKey, err)
		}
		return s.defaults
	}

	loaded := s.defaults
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		debuglog.Warnf("parsing %s, using defaults: %v", SettingsKey, err)
		return s.defaults
	}
	return loaded
}

func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update merges patch into the current settings and persists the result.
// The in-memory value changes even when persisting fails.
func (s *SettingsStore) Update(patch SettingsPatch) error {
	s.mu.Lock()
	s.current = patch.Apply(s.current)
	next := s.current
	s.mu.Unlock()
	return s.commit(next)
}

// Reset restores the defaults and persists them.
func (s *SettingsStore) Reset() error {
	s.mu.Lock()
	s.current = s.defaults
	next := s.current
	s.mu.Unlock()
	return s.commit(next)
}

func (s *SettingsStore) commit(next Settings) error {
	err := s.persist(next)
	if err != nil {
		debuglog.Errorf("persisting %s: %v", SettingsKey, err)
	}
	s.notify(next)
	return err
}

func (s *SettingsStore) persist(next Settings) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := s.kv.SetItem(SettingsKey, string(data)); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

// Subscribe registers fn to run after every mutation. The returned
// function removes the subscription.
func (s *SettingsStore) Subscribe(fn func(Settings)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *SettingsStore) notify(next Settings) {
	s.mu.RLock()
	fns := make([]func(Settings), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(next)
	}
}

func ClampFontSize(n int) int {
	if n < MinFontSize {
		return MinFontSize
	}
	if n > MaxFontSize {
		return MaxFontSize
	}
	return n
}

func NextFontSize(n int) int { return ClampFontSize(n + FontSizeStep) }
func PrevFontSize(n int) int { return ClampFontSize(n - FontSizeStep) }

// ClampLineHeight clamps x to the supported range and rounds it to one decimal.
func ClampLineHeight(x float64) float64 {
	x = math.Round(x*10) / 10
	if x < MinLineHeight {
		return MinLineHeight
	}
	if x > MaxLineHeight {
		return MaxLineHeight
	}
	return x
}

func NextLineHeight(x float64) float64 { return ClampLineHeight(x + LineHeightStep) }
func PrevLineHeight(x float64) float64 { return ClampLineHeight(x - LineHeightStep) }

func cycle[T comparable](values []T, cur T, step int) T {
	idx := 0
	for i, v := range values {
		if v == cur {
			idx = i
			break
		}
	}
	n := len(values)
	return values[((idx+step)%n+n)%n]
}

func CycleTheme(t Theme, step int) Theme                  { return cycle(Themes, t, step) }
func CycleFontFamily(f FontFamily, step int) FontFamily    { return cycle(FontFamilies, f, step) }
func CycleMaxWidth(w MaxWidth, step int) MaxWidth          { return cycle(MaxWidths, w, step) }
func CycleTextAlign(a TextAlign, step int) TextAlign       { return cycle(TextAligns, a, step) }
func CycleAutoScroll(v AutoScrollSpeed, step int) AutoScrollSpeed {
	return cycle(AutoScrollSpeeds, v, step)
}

// Columns is the text column width for the setting, in terminal cells.
func (w MaxWidth) Columns() int {
	switch w {
	case WidthNarrow:
		return 60
	case WidthWide:
		return 90
	default:
		return 75
	}
}

// WrapWidth is the number of cells a line of body text may occupy. A larger
// font means fewer characters per line, as it would in a fixed-width column.
func (s Settings) WrapWidth(viewportWidth int) int {
	size := s.FontSize
	if size <= 0 {
		size = baseFontSize
	}
	cols := s.MaxWidth.Columns() * baseFontSize / size
	if viewportWidth > 0 && cols > viewportWidth {
		cols = viewportWidth
	}
	if cols < 20 {
		cols = 20
	}
	return cols
}

// ParagraphSpacing is the number of blank lines between paragraphs.
func (s Settings) ParagraphSpacing() int {
	steps := int(math.Round((ClampLineHeight(s.LineHeight) - MinLineHeight) * 10))
	return 1 + steps/5
}

// LinesPerTick is how far auto scroll advances per tick.
func (v AutoScrollSpeed) LinesPerTick() int {
	switch v {
	case ScrollSlow:
		return 1
	case ScrollMedium:
		return 2
	case ScrollFast:
		return 4
	default:
		return 0
	}
}
