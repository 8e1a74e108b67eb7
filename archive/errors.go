package archive

import (
	"errors"
	"fmt"
)

// ErrInvalidArchive matches every InvalidArchiveError via errors.Is.
var ErrInvalidArchive = errors.New("invalid archive")

// InvalidArchiveError is returned when an archive fails pre-flight
// validation or its container cannot be opened. No contents are produced.
type InvalidArchiveError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InvalidArchiveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Path)
}

func (e *InvalidArchiveError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidArchive, e.Err}
	}
	return []error{ErrInvalidArchive}
}

func invalid(path, reason string, err error) error {
	return &InvalidArchiveError{Path: path, Reason: reason, Err: err}
}

// EntryError describes a recovered per-entry failure.
type EntryError struct {
	Entry string
	Index int
	Total int
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("error processing entry %s (%d/%d): %v", e.Entry, e.Index, e.Total, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}
