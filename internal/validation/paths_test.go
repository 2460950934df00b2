package validation

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPaths(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}
	ph := NewSecurePathHandler()

	tests := []struct {
		name string
		get  func(string) (string, error)
		want string
	}{
		{"db", ph.DBPath, filepath.Join(home, ".ranobe", "ranobe.db")},
		{"config", ph.ConfigPath, filepath.Join(home, ".config", "ranobe", "config.toml")},
		{"index", ph.IndexPath, filepath.Join(home, ".ranobe", "index.bleve")},
		{"log", ph.LogPath, filepath.Join(home, ".ranobe", "ranobe.log")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.get("")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSecureHandlerRejectsForeignPaths(t *testing.T) {
	ph := NewSecurePathHandler()
	if _, err := ph.DBPath("/etc/ranobe.db"); err == nil {
		t.Error("expected /etc path to be rejected")
	}

	p := filepath.Join(os.TempDir(), "ranobe-test.db")
	got, err := ph.DBPath(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != p {
		t.Errorf("got %q, want %q", got, p)
	}
}

func TestEnsureDirectory(t *testing.T) {
	ph := NewPermissivePathHandler()
	dir := filepath.Join(t.TempDir(), "a", "b")

	got, err := ph.EnsureDirectory(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info, err := os.Stat(got); err != nil || !info.IsDir() {
		t.Errorf("expected %s to be created", got)
	}
}
