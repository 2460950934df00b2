package config

import (
	"os"
	"path/filepath"
	"time"
)

// TestConfig returns a config suitable for testing. Callers that open the
// database should point Database.Path at a t.TempDir file.
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.Database = DatabaseConfig{
		Path:    filepath.Join(os.TempDir(), "ranobe-test.db"),
		Timeout: 1 * time.Second,
	}
	cfg.API.HTTPTimeout = 5 * time.Second
	cfg.API.RequestsPerSecond = 0
	cfg.API.UserAgent = "ranobe-test/1.0"
	cfg.API.UpdatesRefresh = 1 * time.Minute
	cfg.API.DefaultRetryAfter = 5 * time.Minute
	cfg.Reader.SaveInterval = 1 * time.Second
	cfg.UI.Banner = false
	return cfg
}
