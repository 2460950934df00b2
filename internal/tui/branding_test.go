package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/pders01/ranobe/internal/config"
)

func TestShowBanner(t *testing.T) {
	tests := []struct {
		name     string
		version  string
		contains []string
		excludes []string
	}{
		{"release", "1.0.0-test", []string{"Light Novel Reader v1.0.0-test", "╔", "╝"}, nil},
		{"prefixed", "v2.1.0", []string{"Light Novel Reader v2.1.0"}, []string{"vv2.1.0"}},
		{"dev build", "dev", []string{"Light Novel Reader"}, []string{"dev"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			ShowBanner(&buf, tt.version)
			out := buf.String()
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
			assert.Contains(t, out, LogoLines[0])
		})
	}
}

func TestGetCompactBanner(t *testing.T) {
	result := GetCompactBanner("Test message")

	assert.Contains(t, result, "Test message")
	assert.Contains(t, result, LogoLines[1])
}

func TestGetWelcomeMessage(t *testing.T) {
	result := GetWelcomeMessage("r")

	assert.Contains(t, result, "The catalog is empty. Press r to fetch novels")
	assert.Contains(t, result, LogoLines[0])
}

func TestLogoConstants(t *testing.T) {
	assert.Len(t, LogoLines, 4)
	assert.Len(t, BannerColors, 4)
	width := lipgloss.Width(LogoLines[0])
	for _, line := range LogoLines {
		assert.Equal(t, width, lipgloss.Width(line), "logo lines share one width")
	}
	assert.True(t, strings.HasPrefix(CompactLogo, AppName))
}

func TestApplyColors(t *testing.T) {
	saved := []lipgloss.Color{PrimaryColor, AccentColor, ErrorColor}
	t.Cleanup(func() {
		PrimaryColor, AccentColor, ErrorColor = saved[0], saved[1], saved[2]
		buildStyles()
	})

	ApplyColors(config.UIColors{Primary: "#000001", Error: "#000002"})

	assert.Equal(t, lipgloss.Color("#000001"), PrimaryColor)
	assert.Equal(t, lipgloss.Color("#000002"), ErrorColor)
	assert.Equal(t, saved[1], AccentColor, "empty entries keep the built-in color")
	assert.Equal(t, lipgloss.Color("#000001"), LogoStyle.GetForeground())
}
