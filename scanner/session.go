package scanner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"jarsentry/archive"
	"jarsentry/logger"
	"jarsentry/threat"
	"jarsentry/tracing"
)

type Options struct {
	Loader archive.Options
	// Concurrency bounds the class workers of each check.
	Concurrency int
}

// Session owns the contents of the most recently loaded archive. Loads and
// scans on one session are serialized.
type Session struct {
	opts Options

	mu       sync.Mutex
	contents *archive.Contents
	scanned  atomic.Int64
}

func NewSession(opts Options) *Session {
	return &Session{opts: opts, contents: archive.NewContents()}
}

// ResetState drops the loaded contents.
func (s *Session) ResetState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.contents = archive.NewContents()
	s.scanned.Store(0)
}

// Contents returns the loaded contents. Callers must not modify them.
func (s *Session) Contents() *archive.Contents {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contents
}

// ClassesScanned counts classes visited since the last reset, summed over
// every check.
func (s *Session) ClassesScanned() int64 {
	return s.scanned.Load()
}

func (s *Session) EntryPoints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contents.EntryPoints()
}

// LoadArchive resets the session and loads path.
func (s *Session) LoadArchive(ctx context.Context, path string) (archive.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx, path, nil); err != nil {
		return archive.Summary{}, err
	}
	return s.contents.Summary(), nil
}

func (s *Session) loadLocked(ctx context.Context, path string, progress ProgressFunc) error {
	s.resetLocked()
	opts := s.opts.Loader
	if progress != nil {
		prev := opts.OnEntryError
		opts.OnEntryError = func(e *archive.EntryError) {
			progress(ProgressEvent{Stage: StageEntryFailed, Entry: e.Entry, Index: e.Index, Total: e.Total, Err: e.Err})
			if prev != nil {
				prev(e)
			}
		}
	}
	endRegion := tracing.StartRegion(ctx, "load")
	contents, err := archive.NewLoader(opts).Load(ctx, path)
	endRegion()
	if err != nil {
		return err
	}
	s.contents = contents
	return nil
}

// Scan resets the session, loads path and runs the enabled checks. A load
// failure is reported through progress and yields an empty result.
func (s *Session) Scan(ctx context.Context, path string, cfg CheckConfig, progress ProgressFunc) []threat.Finding {
	s.mu.Lock()
	defer s.mu.Unlock()

	emit := serialize(progress)
	emit.emit(ProgressEvent{Stage: StageLoadStarted})
	if err := s.loadLocked(ctx, path, emit); err != nil {
		logger.Errorf("Failed to load %s: %v", path, err)
		emit.emit(ProgressEvent{Stage: StageFailed, Err: err})
		return []threat.Finding{}
	}
	emit.emit(ProgressEvent{Stage: StageLoadCompleted, Classes: len(s.contents.Classes), Resources: len(s.contents.Resources)})
	return s.runLocked(ctx, cfg, emit)
}

// ScanLoaded runs the enabled checks over the contents already loaded.
func (s *Session) ScanLoaded(ctx context.Context, cfg CheckConfig, progress ProgressFunc) []threat.Finding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runLocked(ctx, cfg, serialize(progress))
}

func (s *Session) runLocked(ctx context.Context, cfg CheckConfig, emit ProgressFunc) (findings []threat.Finding) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			logger.Errorf("Analysis aborted: %v", err)
			emit.emit(ProgressEvent{Stage: StageFailed, Err: err})
			findings = []threat.Finding{}
		}
	}()
	findings = RunAll(ctx, s.contents.Classes, cfg, RunOptions{
		Concurrency:  s.opts.Concurrency,
		Progress:     emit,
		ClassScanned: func() { s.scanned.Add(1) },
	})
	emit.emit(ProgressEvent{Stage: StageCompleted, Count: len(findings)})
	return findings
}

// serialize makes progress safe to call from loader workers.
func serialize(progress ProgressFunc) ProgressFunc {
	if progress == nil {
		return nil
	}
	var mu sync.Mutex
	return func(e ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		progress(e)
	}
}
