package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sys/unix"

	"gamearbiter/internal/config"
	"gamearbiter/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name   string
		path   string
		passed bool
	}{
		{"temp dir", t.TempDir(), true},
		{"missing", filepath.Join(t.TempDir(), "nope"), false},
		{"file", file, false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CheckDirectoryAccess("dir", tt.path)
			if res.Passed != tt.passed {
				t.Fatalf("Passed = %v, want %v (%s)", res.Passed, tt.passed, res.Detail)
			}
			if res.Detail == "" {
				t.Fatal("expected non-empty detail")
			}
		})
	}
}

func TestCheckFIFO(t *testing.T) {
	dir := t.TempDir()
	fifo := filepath.Join(dir, "MiSTer_cmd")
	if err := unix.Mkfifo(fifo, 0o600); err != nil {
		t.Fatalf("mkfifo: %v", err)
	}
	plain := filepath.Join(dir, "plain")
	if err := os.WriteFile(plain, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if res := CheckFIFO("fifo", fifo); !res.Passed {
		t.Fatalf("fifo check failed: %s", res.Detail)
	}
	if res := CheckFIFO("fifo", plain); res.Passed || !strings.Contains(res.Detail, "not a named pipe") {
		t.Fatalf("plain file result = %+v", res)
	}
	if res := CheckFIFO("fifo", filepath.Join(dir, "missing")); res.Passed {
		t.Fatal("missing fifo should fail")
	}
}

func TestCheckBinary(t *testing.T) {
	if res := CheckBinary("sh", "sh", "shell", false); !res.Passed {
		t.Fatalf("sh not found: %s", res.Detail)
	}
	res := CheckBinary("ghost", "definitely-not-a-real-binary", "nothing", true)
	if res.Passed || !res.Optional {
		t.Fatalf("result = %+v", res)
	}
}

func TestCheckNtfy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"healthy":true}`))
	}))
	defer srv.Close()

	if res := CheckNtfy(context.Background(), srv.URL+"/arcade"); !res.Passed {
		t.Fatalf("ntfy check failed: %s", res.Detail)
	}
	if res := CheckNtfy(context.Background(), "not a url"); res.Passed || !res.Optional {
		t.Fatalf("invalid url result = %+v", res)
	}
}

func TestRunAllFollowsConfiguredFeatures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(cfg.Paths.GamesDir, 0o755); err != nil {
		t.Fatal(err)
	}
	base := testsupport.BaseDir(cfg)
	cfg.Launcher.Mode = config.LauncherModeMiSTer
	cfg.Sources.UART = []config.UARTSource{{Name: "arcade", Device: filepath.Join(base, "ttyUSB9")}}

	results := RunAll(context.Background(), cfg)
	var names []string
	for _, r := range results {
		names = append(names, r.Name)
	}
	want := []string{"State directory", "Log directory", "Games directory", "MGL directory", "MiSTer command FIFO", "UART arcade"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("checks mismatch (-want +got):\n%s", diff)
	}

	var failed []string
	for _, r := range Failed(results) {
		failed = append(failed, r.Name)
	}
	if diff := cmp.Diff([]string{"MGL directory", "MiSTer command FIFO", "UART arcade"}, failed); diff != "" {
		t.Fatalf("failed mismatch (-want +got):\n%s", diff)
	}
}
