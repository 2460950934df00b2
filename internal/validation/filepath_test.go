package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFilePathValidator(t *testing.T) {
	v := NewFilePathValidator()
	if len(v.AllowedBaseDirs) != 3 {
		t.Fatalf("expected 3 base dirs, got %v", v.AllowedBaseDirs)
	}
	home, _ := os.UserHomeDir()
	if v.AllowedBaseDirs[0] != filepath.Join(home, ".ranobe") {
		t.Errorf("unexpected first base dir %s", v.AllowedBaseDirs[0])
	}
	if v.AllowRelativePaths {
		t.Error("secure validator should not allow relative paths")
	}
}

func TestValidateAndSanitize(t *testing.T) {
	v := NewFilePathValidator()
	tmp := os.TempDir()

	tests := []struct {
		name     string
		input    string
		expected string
		errorMsg string
	}{
		{name: "temp file", input: filepath.Join(tmp, "ranobe.db"), expected: filepath.Join(tmp, "ranobe.db")},
		{name: "cleaned", input: tmp + "/a//b/./c.db", expected: filepath.Join(tmp, "a", "b", "c.db")},
		{name: "empty", input: "", errorMsg: "cannot be empty"},
		{name: "null byte", input: tmp + "/a\x00b", errorMsg: "null bytes"},
		{name: "control char", input: tmp + "/a\x01b", errorMsg: "control characters"},
		{name: "traversal", input: tmp + "/../etc/passwd", errorMsg: "traversal"},
		{name: "outside base", input: "/etc/ranobe.db", errorMsg: "not within allowed"},
		{name: "bad tilde", input: "~root/x", errorMsg: "tilde"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateAndSanitize(tt.input)
			if tt.errorMsg != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errorMsg) {
					t.Fatalf("expected error containing %q, got %v (%q)", tt.errorMsg, err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestHomeExpansion(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}
	v := NewFilePathValidator()

	got, err := v.ValidateAndSanitize("~/.ranobe/ranobe.db")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(home, ".ranobe", "ranobe.db"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	// A sibling directory sharing the prefix is not inside the base.
	if _, err := v.ValidateAndSanitize("~/.ranobe-evil/x.db"); err == nil {
		t.Error("expected sibling directory to be rejected")
	}
}

func TestPermissiveValidatorAllowsRelative(t *testing.T) {
	v := NewPermissiveFilePathValidator()
	got, err := v.ValidateAndSanitize("data/ranobe.db")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != filepath.Join("data", "ranobe.db") {
		t.Errorf("got %q", got)
	}
}

func TestValidateDirectory(t *testing.T) {
	v := NewPermissiveFilePathValidator()
	dir := t.TempDir()

	missing := filepath.Join(dir, "index.bleve")
	got, err := v.ValidateDirectory(missing, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, statErr := os.Stat(got); !os.IsNotExist(statErr) {
		t.Error("directory should not be created when create is false")
	}

	if _, err := v.ValidateDirectory(missing, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info, err := os.Stat(missing); err != nil || !info.IsDir() {
		t.Error("directory should exist after create")
	}

	file := filepath.Join(dir, "plain")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := v.ValidateDirectory(file, false); err == nil {
		t.Error("expected error for a regular file")
	}
}

func TestValidateFile(t *testing.T) {
	v := NewPermissiveFilePathValidator()
	dir := t.TempDir()

	if _, err := v.ValidateFile(filepath.Join(dir, "ranobe.db")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := v.ValidateFile(dir); err == nil || !strings.Contains(err.Error(), "is a directory") {
		t.Errorf("expected directory error, got %v", err)
	}
}
