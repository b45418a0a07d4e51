package file

import (
	"crypto/md5"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// Helper to create a temporary file with content
func createTestFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	filePath := filepath.Join(dir, name)
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		t.Fatalf("Failed to write test file %s: %v", filePath, err)
	}
	return filePath
}

func TestFileMD5(t *testing.T) {
	tmpDir := t.TempDir()
	content := []byte("hello world for md5 test")
	filePath := createTestFile(t, tmpDir, "md5test.txt", content)

	expectedMD5 := fmt.Sprintf("%x", md5.Sum(content))

	gotMD5, err := FileMD5(filePath)
	if err != nil {
		t.Fatalf("FileMD5() error = %v", err)
	}
	if gotMD5 != expectedMD5 {
		t.Errorf("FileMD5() gotMD5 = %s, want %s", gotMD5, expectedMD5)
	}

	if _, err := FileMD5(filepath.Join(tmpDir, "nonexistent.txt")); err == nil {
		t.Errorf("FileMD5() expected error for non-existent file, got nil")
	}
}

func TestCheckLocal(t *testing.T) {
	tmpDir := t.TempDir()
	regular := createTestFile(t, tmpDir, "deploy.sh", []byte("echo hi\n"))

	size, err := CheckLocal(regular)
	if err != nil {
		t.Fatalf("CheckLocal(%s) error = %v", regular, err)
	}
	if size != int64(len("echo hi\n")) {
		t.Errorf("CheckLocal() size = %d, want %d", size, len("echo hi\n"))
	}

	for name, p := range map[string]string{
		"empty":     "",
		"missing":   filepath.Join(tmpDir, "missing.sh"),
		"directory": tmpDir,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := CheckLocal(p)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("CheckLocal(%q) error = %v, want *ValidationError", p, err)
			}
			if vErr.Field != FieldLocalFilePath {
				t.Errorf("ValidationError.Field = %s, want %s", vErr.Field, FieldLocalFilePath)
			}
		})
	}
}

func TestBaseName(t *testing.T) {
	tests := map[string]string{
		"/a/b/script.sh": "script.sh",
		"script.sh":      "script.sh",
		"/a/b/":          "b",
		"":               "",
		"/":              "",
		".":              "",
	}
	for in, want := range tests {
		if got := BaseName(in); got != want {
			t.Errorf("BaseName(%q) = %q, want %q", in, got, want)
		}
	}
}
