package file

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileMD5 calculates the MD5 checksum of a file.
func FileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", fmt.Errorf("failed to copy file content to hash for %s: %w", path, err)
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

// CheckLocal verifies that path names an existing, readable regular file
// and returns its size.
func CheckLocal(path string) (int64, error) {
	if path == "" {
		return 0, &ValidationError{Field: FieldLocalFilePath, Reason: "local file path is empty"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, &ValidationError{Field: FieldLocalFilePath, Reason: fmt.Sprintf("local file %s does not exist", path)}
		}
		return 0, &ValidationError{Field: FieldLocalFilePath, Reason: fmt.Sprintf("cannot stat local file %s", path), Err: err}
	}
	if !info.Mode().IsRegular() {
		return 0, &ValidationError{Field: FieldLocalFilePath, Reason: fmt.Sprintf("%s is not a regular file", path)}
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, &ValidationError{Field: FieldLocalFilePath, Reason: fmt.Sprintf("local file %s is not readable", path), Err: err}
	}
	_ = f.Close()
	return info.Size(), nil
}

// BaseName returns the last element of a local path, or "" when the path
// has no usable file name.
func BaseName(localPath string) string {
	if localPath == "" {
		return ""
	}
	base := filepath.Base(localPath)
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return ""
	}
	return base
}
