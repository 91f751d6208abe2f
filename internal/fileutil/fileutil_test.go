package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rom.bin")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "a9993e364706816aba3e25717850c26c9cd0d89d"; got != want {
		t.Fatalf("HashFile = %q, want %q", got, want)
	}
}

func TestHashPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rom.bin")
	if err := os.WriteFile(path, []byte("abcdef"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := HashPrefix(path, 3)
	if err != nil {
		t.Fatal(err)
	}
	if want := "a9993e364706816aba3e25717850c26c9cd0d89d"; got != want {
		t.Fatalf("HashPrefix = %q, want %q", got, want)
	}
}

func TestHashFileMissing(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
