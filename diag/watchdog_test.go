package diag

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"jarsentry/logger"
)

type fakeProfileWriter struct {
	content string
}

func (f fakeProfileWriter) WriteTo(w io.Writer, debug int) error {
	_, err := io.WriteString(w, f.content)
	return err
}

func TestProbeWritesStallArtifacts(t *testing.T) {
	logger.Init("error")
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	dir := t.TempDir()

	w := NewWatchdog(Options{
		StallTimeout: 2 * time.Second,
		Dir:          dir,
		ProgressFn:   func() int64 { return 42 },
		StatusFn:     func() string { return "Performing URL Detection (1/4)..." },
		DumpFlightRecorder: func(path string) error {
			return os.WriteFile(path, []byte("flight"), 0600)
		},
		ProfileLookupFn: func(name string) profileWriter {
			return fakeProfileWriter{content: name + "-dump"}
		},
	})
	w.lastCount = 42
	w.lastChangeAt = now

	w.poll(now.Add(time.Second))
	if w.Stalls() != 0 {
		t.Fatal("stall reported before the timeout")
	}
	w.poll(now.Add(3 * time.Second))
	if w.Stalls() != 1 {
		t.Fatalf("expected one stall, got %d", w.Stalls())
	}
	// Reports are spaced by the timeout.
	w.poll(now.Add(4 * time.Second))
	if w.Stalls() != 1 {
		t.Fatalf("expected stall reports to be rate limited, got %d", w.Stalls())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	var report, goroutines, flight bool
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasPrefix(name, "jarsentry-stall-") && strings.HasSuffix(name, ".json"):
			report = true
			data, _ := os.ReadFile(filepath.Join(dir, name))
			if !strings.Contains(string(data), "Performing URL Detection") {
				t.Errorf("stall report lacks status: %s", data)
			}
		case strings.HasPrefix(name, "jarsentry-goroutine-"):
			goroutines = true
		case strings.HasPrefix(name, "jarsentry-flight-"):
			flight = true
		}
	}
	if !report || !goroutines || !flight {
		t.Fatalf("missing artifacts: report=%t goroutines=%t flight=%t", report, goroutines, flight)
	}
}

func TestProbeResetsOnProgress(t *testing.T) {
	logger.Init("error")
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	var count int64
	w := NewWatchdog(Options{
		StallTimeout: time.Second,
		ProgressFn:   func() int64 { return count },
	})
	w.lastChangeAt = now

	count = 5
	w.poll(now.Add(2 * time.Second))
	if w.Stalls() != 0 {
		t.Fatal("progress must not count as a stall")
	}
	w.poll(now.Add(2500 * time.Millisecond))
	if w.Stalls() != 0 {
		t.Fatal("stall reported before the timeout elapsed since the last change")
	}
	w.poll(now.Add(3500 * time.Millisecond))
	if w.Stalls() != 1 {
		t.Fatalf("expected one stall, got %d", w.Stalls())
	}
}

func TestStartAndClose(t *testing.T) {
	logger.Init("error")
	var count atomic.Int64
	w := NewWatchdog(Options{
		StallTimeout: 200 * time.Millisecond,
		ProgressFn:   count.Load,
	})
	w.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	count.Add(1)
	w.Close()
	w.Close()

	var disabled *Watchdog
	disabled.Start(context.Background())
	disabled.Close()
	NewWatchdog(Options{}).Start(context.Background())
}
