package scanner

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"jarsentry/classfile"
	"jarsentry/logger"
	"jarsentry/threat"
	"jarsentry/tracing"
)

type RunOptions struct {
	// Concurrency bounds the class workers per check. Zero uses GOMAXPROCS.
	Concurrency int
	Progress    ProgressFunc
	// ClassScanned is called after every class of every check.
	ClassScanned func()
}

// RunAll runs the enabled checks over classes in declared order and
// concatenates their findings. A failing check is reported and contributes
// nothing; the remaining checks still run.
func RunAll(ctx context.Context, classes []*classfile.Class, cfg CheckConfig, opts RunOptions) []threat.Finding {
	kinds := cfg.Kinds()
	findings := make([]threat.Finding, 0)
	for i, kind := range kinds {
		opts.Progress.emit(ProgressEvent{Stage: StageCheckStarted, Check: kind, Index: i + 1, Total: len(kinds)})

		found, err := performCheck(ctx, kind, classes, opts)
		if err != nil {
			logger.Warnf("Check %s failed: %v", kind, err)
			opts.Progress.emit(ProgressEvent{Stage: StageCheckFailed, Check: kind, Index: i + 1, Total: len(kinds), Err: err})
			continue
		}
		logger.Debugf("Check %s produced %d findings", kind, len(found))
		findings = append(findings, found...)
		opts.Progress.emit(ProgressEvent{Stage: StageCheckCompleted, Check: kind, Index: i + 1, Total: len(kinds), Count: len(found)})
	}
	return findings
}

// performCheck scans classes in parallel. Each worker keeps its own slice;
// the slices are joined once every worker is done.
func performCheck(ctx context.Context, kind CheckerKind, classes []*classfile.Class, opts RunOptions) (found []threat.Finding, err error) {
	ctx, endTask := tracing.StartTask(ctx, "check")
	tracing.Log(ctx, "check", kind.String())
	defer endTask()

	checker, err := NewChecker(kind)
	if err != nil {
		return nil, &CheckFailure{Check: kind, Err: err}
	}

	workers := opts.Concurrency
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(classes) {
		workers = len(classes)
	}
	if workers == 0 {
		return []threat.Finding{}, nil
	}

	jobs := make(chan *classfile.Class)
	results := make([][]threat.Finding, workers)
	var (
		wg       sync.WaitGroup
		failOnce sync.Once
		failure  error
	)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					failOnce.Do(func() {
						failure = &CheckFailure{Check: kind, Err: fmt.Errorf("panic: %v", r)}
					})
					// Keep draining so the dispatcher never blocks.
					for range jobs {
					}
				}
			}()
			var local []threat.Finding
			for class := range jobs {
				local = append(local, scanClass(checker, class)...)
				if opts.ClassScanned != nil {
					opts.ClassScanned()
				}
			}
			results[w] = local
		}()
	}

dispatch:
	for _, class := range classes {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- class:
		}
	}
	close(jobs)
	wg.Wait()

	if failure != nil {
		return nil, failure
	}
	if err := ctx.Err(); err != nil {
		return nil, &CheckFailure{Check: kind, Err: err}
	}
	found = make([]threat.Finding, 0)
	for _, r := range results {
		found = append(found, r...)
	}
	return found, nil
}
