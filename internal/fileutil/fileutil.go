package fileutil

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// HashFile streams path through SHA-1 and returns the lower-case hex digest,
// the form No-Intro DATs and hash aliases use.
func HashFile(path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	hasher := sha1.New()
	if _, err := io.Copy(hasher, in); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashPrefix hashes at most limit bytes of path. A limit <= 0 hashes the
// whole file.
func HashPrefix(path string, limit int64) (string, error) {
	if limit <= 0 {
		return HashFile(path)
	}
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	hasher := sha1.New()
	if _, err := io.Copy(hasher, io.LimitReader(in, limit)); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
