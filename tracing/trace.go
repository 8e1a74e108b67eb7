//go:build trace

package tracing

import (
	"context"
	"os"
	"runtime/trace"
	"time"
)

var traceFile *os.File
var flightRecorder *trace.FlightRecorder

// Enabled reports whether the binary was built with runtime tracing.
const Enabled = true

// Start writes a runtime trace to path until Stop is called.
func Start(path string) error {
	if path == "" {
		path = "jarsentry.trace"
	}
	var err error
	traceFile, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	return trace.Start(traceFile)
}

func Stop() {
	trace.Stop()
	if traceFile != nil {
		_ = traceFile.Close()
		traceFile = nil
	}
}

// StartTask opens a trace task; call the returned function to end it.
func StartTask(ctx context.Context, name string) (context.Context, func()) {
	ctx, task := trace.NewTask(ctx, name)
	return ctx, task.End
}

func StartRegion(ctx context.Context, name string) func() {
	return trace.StartRegion(ctx, name).End
}

func Log(ctx context.Context, category, message string) {
	trace.Log(ctx, category, message)
}

// StartFlightRecorder keeps a rolling in-memory trace window.
func StartFlightRecorder(maxBytes uint64, minAge time.Duration) error {
	flightRecorder = trace.NewFlightRecorder(trace.FlightRecorderConfig{MaxBytes: maxBytes, MinAge: minAge})
	return flightRecorder.Start()
}

func StopFlightRecorder() {
	if flightRecorder != nil {
		flightRecorder.Stop()
		flightRecorder = nil
	}
}

// WriteFlightRecorder snapshots the flight recorder window to path. It is a
// no-op when the recorder is not running.
func WriteFlightRecorder(path string) error {
	if flightRecorder == nil || !flightRecorder.Enabled() {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = flightRecorder.WriteTo(f)
	return err
}
