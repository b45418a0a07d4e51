// util_test.go
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestHome(t *testing.T) {
	home, err := Home()
	if err != nil {
		t.Fatalf("Home() returned error: %v", err)
	}
	if home == "" {
		t.Fatal("Home() returned empty string")
	}
	again, _ := Home()
	if again != home {
		t.Errorf("Home() not cached: %q then %q", home, again)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := Home()
	if err != nil {
		t.Fatalf("Home() returned error: %v", err)
	}
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"tilde only", "~", home},
		{"tilde prefix", "~/.ssh/id_ed25519", filepath.Join(home, ".ssh/id_ed25519")},
		{"absolute", "/etc/ssh/key", "/etc/ssh/key"},
		{"relative", "keys/id_rsa", "keys/id_rsa"},
		{"tilde user form untouched", "~bob/key", "~bob/key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandHome(tt.in)
			if err != nil {
				t.Fatalf("ExpandHome(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir() error: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("EnsureDir() did not create %s", dir)
	}
	if err := EnsureDir(dir); err != nil {
		t.Errorf("EnsureDir() on existing dir error: %v", err)
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name      string
		s         string
		maxLength int
		ellipsis  string
		want      string
	}{
		{"No truncation", "hello", 10, "...", "hello"},
		{"Exact length", "hello", 5, "...", "hello"},
		{"Simple truncation", "hello world", 8, "...", "hello..."},
		{"maxLength smaller than ellipsis", "hello world", 2, "...", ".."},
		{"maxLength negative", "hello world", -1, "...", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateString(tt.s, tt.maxLength, tt.ellipsis); got != tt.want {
				t.Errorf("TruncateString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCombineErrors(t *testing.T) {
	err1 := fmt.Errorf("sftp close error")
	err2 := fmt.Errorf("ssh close error")

	tests := []struct {
		name string
		errs []error
		want string
	}{
		{"No errors", []error{}, ""},
		{"Nil errors", []error{nil, nil}, ""},
		{"One error", []error{err1}, "sftp close error"},
		{"Mixed nil and errors", []error{nil, err1, nil, err2}, "sftp close error; ssh close error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotErr := CombineErrors(tt.errs...)
			if tt.want == "" {
				if gotErr != nil {
					t.Errorf("CombineErrors() got error %v, want nil", gotErr)
				}
				return
			}
			if gotErr == nil || gotErr.Error() != tt.want {
				t.Errorf("CombineErrors() = %v, want %q", gotErr, tt.want)
			}
		})
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "", "c", "d"); got != "c" {
		t.Errorf("FirstNonEmpty() = %q, want %q", got, "c")
	}
	if got := FirstNonEmpty("", ""); got != "" {
		t.Errorf("FirstNonEmpty() = %q, want empty", got)
	}
}
