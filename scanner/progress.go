package scanner

import (
	"errors"
	"fmt"
)

type Stage int

const (
	StageLoadStarted Stage = iota
	StageEntryFailed
	StageLoadCompleted
	StageCheckStarted
	StageCheckCompleted
	StageCheckFailed
	StageCompleted
	StageFailed
)

// ProgressEvent is one status notification of a scan. Only the fields
// relevant to Stage are set.
type ProgressEvent struct {
	Stage     Stage
	Check     CheckerKind
	Index     int
	Total     int
	Classes   int
	Resources int
	Count     int
	Entry     string
	Err       error
}

func (e ProgressEvent) String() string {
	switch e.Stage {
	case StageLoadStarted:
		return "Loading JAR file..."
	case StageEntryFailed:
		return fmt.Sprintf("Error processing entry %s (%d/%d): %v", e.Entry, e.Index, e.Total, e.Err)
	case StageLoadCompleted:
		return fmt.Sprintf("Loaded %d classes, %d files", e.Classes, e.Resources)
	case StageCheckStarted:
		return fmt.Sprintf("Performing %s (%d/%d)...", e.Check, e.Index, e.Total)
	case StageCheckCompleted:
		return fmt.Sprintf("Completed %s - found %d threats", e.Check, e.Count)
	case StageCheckFailed:
		cause := e.Err
		var cf *CheckFailure
		if errors.As(cause, &cf) {
			cause = cf.Err
		}
		return fmt.Sprintf("Error in %s: %v", e.Check, cause)
	case StageCompleted:
		return fmt.Sprintf("Analysis complete! Found %d threats", e.Count)
	case StageFailed:
		return fmt.Sprintf("Error during analysis: %v", e.Err)
	}
	return fmt.Sprintf("stage %d", int(e.Stage))
}

// ProgressFunc receives progress events. The session serializes calls.
type ProgressFunc func(ProgressEvent)

func (f ProgressFunc) emit(e ProgressEvent) {
	if f != nil {
		f(e)
	}
}

// ChannelProgress forwards events to ch. The consumer must keep draining
// ch until the scan returns.
func ChannelProgress(ch chan<- ProgressEvent) ProgressFunc {
	return func(e ProgressEvent) {
		ch <- e
	}
}

// MessageProgress adapts a plain string callback.
func MessageProgress(fn func(string)) ProgressFunc {
	if fn == nil {
		return nil
	}
	return func(e ProgressEvent) {
		fn(e.String())
	}
}
