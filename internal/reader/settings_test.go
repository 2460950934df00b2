package reader

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	assert.Equal(t, Settings{
		FontFamily:      FontSerif,
		FontSize:        18,
		LineHeight:      1.8,
		MaxWidth:        WidthMedium,
		Theme:           ThemeLight,
		TextAlign:       AlignLeft,
		AutoScrollSpeed: ScrollOff,
	}, DefaultSettings())
}

func TestSettingsPatch_ApplyIsPureMerge(t *testing.T) {
	base := Settings{
		FontFamily:      FontMono,
		FontSize:        22,
		LineHeight:      2.0,
		MaxWidth:        WidthWide,
		Theme:           ThemeSepia,
		TextAlign:       AlignJustify,
		AutoScrollSpeed: ScrollSlow,
	}

	tests := []struct {
		name  string
		patch SettingsPatch
		want  func(Settings) Settings
	}{
		{"empty patch", SettingsPatch{}, func(s Settings) Settings { return s }},
		{"theme only", WithTheme(ThemeNight), func(s Settings) Settings { s.Theme = ThemeNight; return s }},
		{"font size only", WithFontSize(14), func(s Settings) Settings { s.FontSize = 14; return s }},
		{"unclamped value kept", WithFontSize(40), func(s Settings) Settings { s.FontSize = 40; return s }},
		{"line height", WithLineHeight(1.4), func(s Settings) Settings { s.LineHeight = 1.4; return s }},
		{"auto scroll", WithAutoScroll(ScrollOff), func(s Settings) Settings { s.AutoScrollSpeed = ScrollOff; return s }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := base
			got := tt.patch.Apply(base)
			assert.Equal(t, tt.want(base), got)
			assert.Equal(t, original, base, "Apply must not mutate its input")
		})
	}
}

func TestSettingsStore_UpdatePersists(t *testing.T) {
	kv := newBoltKV(t)
	store := NewSettingsStore(kv)
	require.Equal(t, DefaultSettings(), store.Get())

	require.NoError(t, store.Update(WithTheme(ThemeDark)))
	require.NoError(t, store.Update(WithFontSize(22)))

	want := DefaultSettings()
	want.Theme = ThemeDark
	want.FontSize = 22
	assert.Equal(t, want, store.Get())

	reloaded := NewSettingsStore(kv)
	assert.Equal(t, want, reloaded.Get())

	raw, err := kv.GetItem(SettingsKey)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, "dark", decoded["theme"])
	assert.Len(t, decoded, 7)
}

func TestSettingsStore_ResetAlwaysYieldsDefaults(t *testing.T) {
	kv := newMemKV()
	store := NewSettingsStore(kv)
	require.NoError(t, store.Update(SettingsPatch{
		FontFamily: ptr(FontMono),
		Theme:      ptr(ThemeNight),
		TextAlign:  ptr(AlignJustify),
	}))

	require.NoError(t, store.Reset())
	assert.Equal(t, DefaultSettings(), store.Get())
	assert.Equal(t, DefaultSettings(), NewSettingsStore(kv).Get())
}

func TestSettingsStore_LoadFallbacks(t *testing.T) {
	tests := []struct {
		name string
		blob string
		want func() Settings
	}{
		{"malformed json", `{"theme": "dark",`, DefaultSettings},
		{"wrong type", `{"font_size": "big"}`, DefaultSettings},
		{"partial blob fills gaps", `{"theme":"sepia"}`, func() Settings {
			s := DefaultSettings()
			s.Theme = ThemeSepia
			return s
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := newMemKV()
			kv.data[SettingsKey] = tt.blob
			var store *SettingsStore
			require.NotPanics(t, func() { store = NewSettingsStore(kv) })
			assert.Equal(t, tt.want(), store.Get())
		})
	}
}

func TestSettingsStore_PersistFailureKeepsMemoryState(t *testing.T) {
	kv := newMemKV()
	kv.failSet = true
	store := NewSettingsStore(kv)

	err := store.Update(WithTheme(ThemeSepia))
	assert.Error(t, err)
	assert.Equal(t, ThemeSepia, store.Get().Theme)
}

func TestSettingsStore_Subscribe(t *testing.T) {
	store := NewSettingsStore(newMemKV())
	var seen []Theme
	unsubscribe := store.Subscribe(func(s Settings) { seen = append(seen, s.Theme) })

	require.NoError(t, store.Update(WithTheme(ThemeDark)))
	require.NoError(t, store.Reset())
	unsubscribe()
	unsubscribe()
	require.NoError(t, store.Update(WithTheme(ThemeNight)))

	assert.Equal(t, []Theme{ThemeDark, ThemeLight}, seen)
}

func TestClampHelpers(t *testing.T) {
	assert.Equal(t, 14, ClampFontSize(10))
	assert.Equal(t, 26, ClampFontSize(30))
	assert.Equal(t, 20, NextFontSize(18))
	assert.Equal(t, 26, NextFontSize(26))
	assert.Equal(t, 14, PrevFontSize(14))

	assert.Equal(t, 1.9, NextLineHeight(1.8))
	assert.Equal(t, 2.4, NextLineHeight(2.4))
	assert.Equal(t, 1.4, PrevLineHeight(1.4))
	assert.Equal(t, 1.4, ClampLineHeight(0.5))
}

func TestCycleHelpers(t *testing.T) {
	assert.Equal(t, ThemeDark, CycleTheme(ThemeLight, 1))
	assert.Equal(t, ThemeLight, CycleTheme(ThemeNight, 1))
	assert.Equal(t, ThemeNight, CycleTheme(ThemeLight, -1))
	assert.Equal(t, AlignJustify, CycleTextAlign(AlignLeft, 1))
	assert.Equal(t, ScrollSlow, CycleAutoScroll(ScrollOff, 1))
	assert.Equal(t, WidthNarrow, CycleMaxWidth(WidthWide, 1))
	assert.Equal(t, FontSansSerif, CycleFontFamily(FontSerif, 1))
}

func TestLayoutHelpers(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 75, s.WrapWidth(200))
	assert.Equal(t, 50, s.WrapWidth(50))

	s.FontSize = 26
	assert.Equal(t, 75*18/26, s.WrapWidth(200))

	s.MaxWidth = WidthNarrow
	s.FontSize = 14
	assert.Equal(t, 60*18/14, s.WrapWidth(200))

	assert.Equal(t, 1, DefaultSettings().ParagraphSpacing())
	s.LineHeight = 2.4
	assert.Equal(t, 3, s.ParagraphSpacing())

	assert.Equal(t, 0, ScrollOff.LinesPerTick())
	assert.Greater(t, ScrollFast.LinesPerTick(), ScrollSlow.LinesPerTick())
}

func ptr[T any](v T) *T { return &v }
