package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"gamearbiter/internal/logs"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func TestLast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamearbiter.log")
	writeLog(t, path, "INFO a\nWARN b\nINFO c\nWARN d\n")

	tests := []struct {
		name string
		opts logs.Options
		want []string
	}{
		{"last two", logs.Options{Limit: 2}, []string{"INFO c", "WARN d"}},
		{"more than file", logs.Options{Limit: 10}, []string{"INFO a", "WARN b", "INFO c", "WARN d"}},
		{"filtered", logs.Options{Limit: 5, Match: "warn"}, []string{"WARN b", "WARN d"}},
		{"none", logs.Options{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, offset, err := logs.Last(path, tt.opts)
			if err != nil {
				t.Fatalf("Last: %v", err)
			}
			if diff := cmp.Diff(tt.want, lines); diff != "" {
				t.Fatalf("lines mismatch (-want +got):\n%s", diff)
			}
			if offset != 28 {
				t.Fatalf("offset = %d, want 28", offset)
			}
		})
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "missing.log"), logs.Options{Limit: 3})
	if err != nil || lines != nil || offset != 0 {
		t.Fatalf("Last = %v, %d, %v", lines, offset, err)
	}
}

func TestFollowDeliversAppendedLines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "gamearbiter.log")
	writeLog(t, path, "start\n")
	_, offset, err := logs.Last(path, logs.Options{Limit: 1})
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	var (
		mu  sync.Mutex
		got []string
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, logs.Options{Match: "launch"}, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	// The watcher may not be registered yet; keep appending until a line lands.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString("noise\n"); err != nil {
		t.Fatalf("append: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := f.WriteString("launch ok\n"); err != nil {
			t.Fatalf("append: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("follow never delivered a line")
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, line := range got {
		if line != "launch ok" {
			t.Fatalf("unexpected line %q in %v", line, got)
		}
	}
}
