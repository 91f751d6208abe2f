package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path (and its parents) with the given contents.
func WriteFile(t testing.TB, path string, contents string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteGameTree lays out placeholder ROM files below root. Keys are paths
// relative to root, e.g. "SNES/Chrono Trigger (USA).sfc".
func WriteGameTree(t testing.TB, root string, files ...string) {
	t.Helper()

	for _, rel := range files {
		WriteFile(t, filepath.Join(root, filepath.FromSlash(rel)), "rom")
	}
}
