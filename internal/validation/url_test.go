package validation

import (
	"net"
	"strings"
	"testing"
)

func TestURLValidatorDefaults(t *testing.T) {
	v := NewURLValidator()
	if v.AllowLocalhost || v.AllowPrivateIPs {
		t.Error("default validator should reject local and private hosts")
	}
	if !v.AllowQuery {
		t.Error("default validator should allow query strings")
	}

	s := NewServerURLValidator()
	if !s.AllowLocalhost || !s.AllowPrivateIPs {
		t.Error("server validator should accept local and private hosts")
	}
	if s.AllowQuery {
		t.Error("server validator should reject query strings")
	}
}

func TestServerURLValidator(t *testing.T) {
	v := NewServerURLValidator()

	tests := []struct {
		name     string
		input    string
		expected string
		errorMsg string
	}{
		{name: "localhost with port", input: "http://localhost:8000", expected: "http://localhost:8000"},
		{name: "trailing slash trimmed", input: "https://novels.example.org/", expected: "https://novels.example.org"},
		{name: "scheme added", input: "novels.example.org", expected: "https://novels.example.org"},
		{name: "sub path kept", input: "http://192.168.1.20:8000/ranobe/", expected: "http://192.168.1.20:8000/ranobe"},
		{name: "fragment dropped", input: "http://localhost:8000#top", expected: "http://localhost:8000"},
		{name: "empty", input: "  ", errorMsg: "cannot be empty"},
		{name: "ftp scheme", input: "ftp://files.example.org", errorMsg: "http or https"},
		{name: "query", input: "http://localhost:8000?x=1", errorMsg: "query string"},
		{name: "credentials", input: "http://user:pw@localhost:8000", errorMsg: "credentials"},
		{name: "traversal", input: "http://localhost/../etc", errorMsg: "traversal"},
		{name: "angle bracket", input: "http://localhost/<x>", errorMsg: "invalid characters"},
		{name: "unspecified", input: "http://0.0.0.0:8000", errorMsg: "unroutable"},
		{name: "no host", input: "http://:8000", errorMsg: "hostname"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateAndNormalize(tt.input)
			if tt.errorMsg != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got %q", tt.errorMsg, got)
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q, got %v", tt.errorMsg, err)
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

func TestURLValidatorRejectsLocalHosts(t *testing.T) {
	v := NewURLValidator()

	for _, input := range []string{
		"http://localhost/feed.xml",
		"http://api.localhost/feed.xml",
		"http://127.0.0.1/feed.xml",
		"http://[::1]/feed.xml",
		"http://10.0.0.3/feed.xml",
		"http://192.168.0.1/feed.xml",
		"http://169.254.1.1/feed.xml",
	} {
		if _, err := v.ValidateAndNormalize(input); err == nil {
			t.Errorf("expected %s to be rejected", input)
		}
	}

	got, err := v.ValidateAndNormalize("https://novels.example.org/feed.xml?lang=vi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://novels.example.org/feed.xml?lang=vi" {
		t.Errorf("unexpected normalization: %s", got)
	}

	if _, err := v.ValidateAndNormalize("https://novels.example.org/feed?q=javascript:alert(1)"); err == nil {
		t.Error("expected suspicious query to be rejected")
	}
}

func TestURLValidatorMaxLength(t *testing.T) {
	v := NewURLValidator()
	long := "https://novels.example.org/" + strings.Repeat("a", 2048)
	if _, err := v.ValidateAndNormalize(long); err == nil || !strings.Contains(err.Error(), "too long") {
		t.Errorf("expected length error, got %v", err)
	}
}

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"localhost", true},
		{"LOCALHOST", true},
		{"reader.localhost", true},
		{"127.0.0.5", true},
		{"::1", true},
		{"localhost.com", false},
		{"novels.example.org", false},
	}
	for _, tt := range tests {
		if got := isLocalhost(tt.host); got != tt.want {
			t.Errorf("isLocalhost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"172.32.0.1", false},
		{"192.168.1.1", true},
		{"169.254.0.1", true},
		{"fd00::1", true},
		{"fe80::1", true},
		{"8.8.8.8", false},
		{"2001:4860:4860::8888", false},
	}
	for _, tt := range tests {
		if got := isPrivateIP(net.ParseIP(tt.ip)); got != tt.want {
			t.Errorf("isPrivateIP(%s) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}
