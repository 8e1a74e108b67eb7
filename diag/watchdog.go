package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/pprof"
	"sync"
	"time"

	"jarsentry/logger"
)

type profileWriter interface {
	WriteTo(w io.Writer, debug int) error
}

type Options struct {
	// StallTimeout is how long the scanned-class counter may stay flat
	// before a stall is reported. Zero disables the watchdog.
	StallTimeout time.Duration
	// Dir receives stall artifacts. Empty means log only.
	Dir string
	// ProgressFn returns a counter that grows while work is happening.
	ProgressFn func() int64
	// StatusFn describes the current phase for the stall report.
	StatusFn           func() string
	DumpFlightRecorder func(path string) error
	NowFn              func() time.Time
	ProfileLookupFn    func(name string) profileWriter
}

// Watchdog reports scans that stop making progress.
type Watchdog struct {
	opts Options

	mu           sync.Mutex
	lastCount    int64
	lastChangeAt time.Time
	lastReportAt time.Time
	stalls       int

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewWatchdog(opts Options) *Watchdog {
	if opts.NowFn == nil {
		opts.NowFn = time.Now
	}
	if opts.ProfileLookupFn == nil {
		opts.ProfileLookupFn = func(name string) profileWriter {
			if p := pprof.Lookup(name); p != nil {
				return p
			}
			return nil
		}
	}
	return &Watchdog{opts: opts}
}

// Start polls the progress counter until ctx ends or Close is called.
func (w *Watchdog) Start(ctx context.Context) {
	if w == nil || w.opts.StallTimeout <= 0 || w.opts.ProgressFn == nil || w.stopCh != nil {
		return
	}

	w.mu.Lock()
	w.lastCount = w.opts.ProgressFn()
	w.lastChangeAt = w.opts.NowFn()
	w.lastReportAt = time.Time{}
	w.mu.Unlock()

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	interval := min(max(w.opts.StallTimeout/4, 100*time.Millisecond), 2*time.Second)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(w.doneCh)
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case <-ticker.C:
				w.poll(w.opts.NowFn())
			}
		}
	}()
}

func (w *Watchdog) Close() {
	if w == nil || w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.doneCh
	w.stopCh = nil
	w.doneCh = nil
}

// Stalls returns how many stall reports were made.
func (w *Watchdog) Stalls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stalls
}

func (w *Watchdog) poll(now time.Time) {
	count := w.opts.ProgressFn()

	w.mu.Lock()
	if count != w.lastCount {
		w.lastCount = count
		w.lastChangeAt = now
		w.mu.Unlock()
		return
	}
	stalledFor := now.Sub(w.lastChangeAt)
	report := stalledFor >= w.opts.StallTimeout &&
		(w.lastReportAt.IsZero() || now.Sub(w.lastReportAt) >= w.opts.StallTimeout)
	if report {
		w.lastReportAt = now
		w.stalls++
	}
	w.mu.Unlock()

	if !report {
		return
	}
	status := ""
	if w.opts.StatusFn != nil {
		status = w.opts.StatusFn()
	}
	logger.Warnf("No progress for %s after %d classes scanned (%s)", stalledFor.Round(time.Millisecond), count, status)
	if w.opts.Dir == "" {
		return
	}
	if err := w.dump(now, count, stalledFor, status); err != nil {
		logger.Warnf("Failed to write stall diagnostics: %v", err)
	}
}

func (w *Watchdog) dump(now time.Time, count int64, stalledFor time.Duration, status string) error {
	if err := os.MkdirAll(w.opts.Dir, 0755); err != nil {
		return err
	}
	ts := now.UTC().Format("20060102-150405.000")
	report := map[string]interface{}{
		"event":           "scan_stalled",
		"timestamp":       now.UTC().Format(time.RFC3339Nano),
		"classes_scanned": count,
		"status":          status,
		"timeout_ms":      w.opts.StallTimeout.Milliseconds(),
		"stalled_ms":      stalledFor.Milliseconds(),
	}
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(w.opts.Dir, fmt.Sprintf("jarsentry-stall-%s.json", ts)), b, 0600); err != nil {
		return err
	}

	if _, err := w.writeProfile("goroutine", ts); err != nil {
		logger.Warnf("Goroutine dump failed: %v", err)
	}
	if w.opts.DumpFlightRecorder != nil {
		path := filepath.Join(w.opts.Dir, fmt.Sprintf("jarsentry-flight-%s.out", ts))
		if err := w.opts.DumpFlightRecorder(path); err != nil {
			logger.Warnf("Flight recorder dump failed: %v", err)
		}
	}
	return nil
}

func (w *Watchdog) writeProfile(name, ts string) (string, error) {
	profile := w.opts.ProfileLookupFn(name)
	if profile == nil {
		return "", fmt.Errorf("pprof profile %q unavailable", name)
	}
	path := filepath.Join(w.opts.Dir, fmt.Sprintf("jarsentry-%s-%s.txt", name, ts))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := profile.WriteTo(f, 2); err != nil {
		return "", err
	}
	return path, nil
}
