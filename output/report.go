package output

import (
	"os"
	"path/filepath"
	"time"

	"github.com/djherbis/times"
	"github.com/google/uuid"

	"jarsentry/archive"
	"jarsentry/fuzzy"
	"jarsentry/hasher"
	"jarsentry/logger"
	"jarsentry/threat"
)

// SchemaVersion is bumped whenever a report field is renamed or removed.
const SchemaVersion = "1.0"

const toolName = "jarsentry"

type ArchiveInfo struct {
	Path        string            `json:"path"`
	Name        string            `json:"name"`
	Size        int64             `json:"size"`
	ModTime     string            `json:"mod_time,omitempty"`
	AccessTime  string            `json:"access_time,omitempty"`
	ChangeTime  string            `json:"change_time,omitempty"`
	BirthTime   string            `json:"birth_time,omitempty"`
	Hashes      map[string]string `json:"hashes,omitempty"`
	FuzzyHashes map[string]string `json:"fuzzy_hashes,omitempty"`
}

// DescribeArchive stats path and computes the requested digests. Stat
// failures leave the time fields empty.
func DescribeArchive(path string, hashAlgs, fuzzyAlgs []string) ArchiveInfo {
	info := ArchiveInfo{Path: path, Name: filepath.Base(path)}
	if fi, err := os.Stat(path); err == nil {
		info.Size = fi.Size()
		info.ModTime = fi.ModTime().UTC().Format(time.RFC3339)
	}
	if ts, err := times.Stat(path); err == nil {
		info.AccessTime = ts.AccessTime().UTC().Format(time.RFC3339)
		if ts.HasChangeTime() {
			info.ChangeTime = ts.ChangeTime().UTC().Format(time.RFC3339)
		}
		if ts.HasBirthTime() {
			info.BirthTime = ts.BirthTime().UTC().Format(time.RFC3339)
		}
	} else {
		logger.Debugf("Failed to read times for %s: %v", path, err)
	}
	if len(hashAlgs) > 0 {
		info.Hashes = hasher.File(path, hashAlgs)
	}
	if len(fuzzyAlgs) > 0 {
		info.FuzzyHashes = fuzzy.FileDigests(path, fuzzyAlgs)
	}
	return info
}

type CheckError struct {
	Check string `json:"check"`
	Error string `json:"error"`
}

type Metrics struct {
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	DurationMS       int64  `json:"duration_ms"`
	ClassesScanned   int64  `json:"classes_scanned"`
	ChecksRun        int    `json:"checks_run"`
	ChecksFailed     int    `json:"checks_failed"`
	EntriesFailed    int    `json:"entries_failed"`
	FindingsTotal    int    `json:"findings_total"`
	FindingsReported int    `json:"findings_reported"`
}

// Report is the document every output format renders.
type Report struct {
	SchemaVersion string           `json:"schema_version"`
	ScanID        string           `json:"scan_id"`
	Tool          string           `json:"tool"`
	Version       string           `json:"version"`
	Archive       ArchiveInfo      `json:"archive"`
	Summary       archive.Summary  `json:"summary"`
	EntryPoints   []string         `json:"entry_points"`
	FailedEntries []string         `json:"failed_entries"`
	Checks        []string         `json:"checks"`
	CheckErrors   []CheckError     `json:"check_errors,omitempty"`
	RiskCounts    map[string]int   `json:"risk_counts"`
	Findings      []threat.Finding `json:"findings"`
	Metrics       Metrics          `json:"metrics"`

	// ClassEntries maps a class name to its archive entry for locations.
	ClassEntries map[string]string `json:"-"`

	started time.Time
}

func NewReport(version string, start time.Time) *Report {
	return &Report{
		SchemaVersion: SchemaVersion,
		ScanID:        uuid.NewString(),
		Tool:          toolName,
		Version:       version,
		EntryPoints:   []string{},
		FailedEntries: []string{},
		Checks:        []string{},
		RiskCounts:    map[string]int{},
		Findings:      []threat.Finding{},
		ClassEntries:  map[string]string{},
		Metrics:       Metrics{StartTime: start.UTC().Format(time.RFC3339)},
		started:       start,
	}
}

// SetContents copies the archive-derived sections of the report.
func (r *Report) SetContents(c *archive.Contents) {
	if c == nil {
		return
	}
	r.Summary = c.Summary()
	if eps := c.EntryPoints(); eps != nil {
		r.EntryPoints = eps
	}
	r.FailedEntries = c.FailedEntries()
	r.Metrics.EntriesFailed = len(r.FailedEntries)
	for name, entry := range c.ClassEntries {
		r.ClassEntries[name] = entry
	}
}

func (r *Report) AddCheckError(check string, err error) {
	if err == nil {
		return
	}
	r.CheckErrors = append(r.CheckErrors, CheckError{Check: check, Error: err.Error()})
	r.Metrics.ChecksFailed = len(r.CheckErrors)
}

// SetFindings applies dedupe and the risk floor, then stores the findings in
// display order. The input slice is not modified.
func (r *Report) SetFindings(findings []threat.Finding, minRisk threat.RiskLevel, dedupe bool) {
	r.Metrics.FindingsTotal = len(findings)
	out := append([]threat.Finding(nil), findings...)
	if dedupe {
		out = threat.Dedupe(out)
	}
	out = threat.FilterMinRisk(out, minRisk)
	threat.SortForDisplay(out)
	if out == nil {
		out = []threat.Finding{}
	}
	r.Findings = out
	r.RiskCounts = threat.CountByRisk(out)
	r.Metrics.FindingsReported = len(out)
}

func (r *Report) Finish(end time.Time, classesScanned int64) {
	r.Metrics.EndTime = end.UTC().Format(time.RFC3339)
	if !r.started.IsZero() {
		r.Metrics.DurationMS = end.Sub(r.started).Milliseconds()
	}
	r.Metrics.ClassesScanned = classesScanned
}

// EntryFor returns the archive entry a class was read from, falling back to
// the conventional class path.
func (r *Report) EntryFor(class string) string {
	if entry, ok := r.ClassEntries[class]; ok {
		return entry
	}
	return class + ".class"
}
