package media

import (
	_ "embed"
	"net/url"
	"path"
	"runtime"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed media_types.toml
var mediaTypesTOML []byte

type TypeConfig struct {
	Extensions  []string `toml:"extensions"`
	URLPatterns []string `toml:"url_patterns"`
}

type TypesConfig struct {
	Image     TypeConfig                `toml:"image"`
	Web       TypeConfig                `toml:"web"`
	Platforms map[string]PlatformConfig `toml:"platforms"`
}

type PlatformConfig struct {
	DefaultOpener string `toml:"default_opener"`
}

type TypeDetector struct {
	config *TypesConfig
}

func NewTypeDetector() (*TypeDetector, error) {
	var config TypesConfig
	if _, err := toml.Decode(string(mediaTypesTOML), &config); err != nil {
		return nil, err
	}
	return &TypeDetector{config: &config}, nil
}

// DetectType classifies target by file extension first, then by URL
// pattern. Any other http(s) URL is treated as a web page.
func (d *TypeDetector) DetectType(target string) Type {
	lower := strings.ToLower(target)
	isURL := strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")

	p := lower
	if isURL {
		if u, err := url.Parse(lower); err == nil {
			p = u.Path
		}
	}
	if ext := strings.TrimPrefix(path.Ext(p), "."); ext != "" {
		if slices.Contains(d.config.Image.Extensions, ext) {
			return TypeImage
		}
		if slices.Contains(d.config.Web.Extensions, ext) {
			return TypeWeb
		}
	}

	if !isURL {
		return TypeUnknown
	}
	if matchesPattern(lower, d.config.Image.URLPatterns) {
		return TypeImage
	}
	return TypeWeb
}

func (d *TypeDetector) GetDefaultOpener() string {
	if platform, ok := d.config.Platforms[runtime.GOOS]; ok {
		return platform.DefaultOpener
	}
	if fallback, ok := d.config.Platforms["fallback"]; ok {
		return fallback.DefaultOpener
	}
	return "open"
}

func matchesPattern(target string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(target, pattern) {
			return true
		}
	}
	return false
}
