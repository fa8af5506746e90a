package cmd

import (
	"os"
	"testing"
)

func TestValidateAddr(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"loopback with port", "127.0.0.1:3400", false},
		{"localhost with port", "localhost:8080", false},
		{"port only", ":8080", false},
		{"hostname with port", "docs.internal:443", false},
		{"missing port", "127.0.0.1", true},
		{"non-numeric port", "127.0.0.1:http", true},
		{"port zero auto-assign", "127.0.0.1:0", false},
		{"empty port", "localhost:", true},
		{"port too large", "127.0.0.1:70000", true},
		{"host with whitespace", "bad host:8080", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAddr(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAddr(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
		})
	}
}

// withArgs substitutes os.Args for the duration of the test.
func withArgs(t *testing.T, args ...string) {
	t.Helper()
	old := os.Args
	t.Cleanup(func() { os.Args = old })
	os.Args = args
}

func TestParseServeAddr(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		withArgs(t, "askdocs", "serve")
		got, err := parseServeAddr("127.0.0.1:3400")
		if err != nil {
			t.Fatalf("parseServeAddr() error: %v", err)
		}
		if got != "127.0.0.1:3400" {
			t.Errorf("parseServeAddr() = %q, want default", got)
		}
	})

	t.Run("positional", func(t *testing.T) {
		withArgs(t, "askdocs", "serve", ":8080")
		got, err := parseServeAddr("127.0.0.1:3400")
		if err != nil {
			t.Fatalf("parseServeAddr() error: %v", err)
		}
		if got != ":8080" {
			t.Errorf("parseServeAddr() = %q, want :8080", got)
		}
	})

	t.Run("flag", func(t *testing.T) {
		withArgs(t, "askdocs", "serve", "--addr", ":9090")
		got, err := parseServeAddr("127.0.0.1:3400")
		if err != nil {
			t.Fatalf("parseServeAddr() error: %v", err)
		}
		if got != ":9090" {
			t.Errorf("parseServeAddr() = %q, want :9090", got)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		withArgs(t, "askdocs", "serve", "not-an-addr")
		if _, err := parseServeAddr("127.0.0.1:3400"); err == nil {
			t.Error("parseServeAddr() accepted an invalid address")
		}
	})
}
