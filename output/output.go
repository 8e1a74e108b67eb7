package output

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"jarsentry/config"
	"jarsentry/logger"
)

// Writer renders reports in the configured format and mirrors them to the
// OTLP exporter when one is configured.
type Writer struct {
	mu      sync.Mutex
	file    *os.File
	buf     *bufio.Writer
	format  string
	infoURI string // SARIF driver informationUri, omitted when empty
	otel    *otelLogger
	closed  bool
}

// New opens cfg.OutputFile (stdout when empty) for writing.
func New(cfg *config.Config) (*Writer, error) {
	var out io.Writer = os.Stdout
	w := &Writer{format: "text"}
	if cfg != nil {
		if f := strings.ToLower(cfg.OutputFormat); f != "" {
			w.format = f
		}
		w.infoURI = cfg.SarifInformationURI
		if cfg.OutputFile != "" {
			f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
			if err != nil {
				return nil, fmt.Errorf("open report file: %w", err)
			}
			w.file = f
			out = f
		}
		otel, err := newOtelLogger(cfg)
		if err != nil {
			logger.Warnf("OTEL export disabled: %v", err)
		} else {
			w.otel = otel
		}
	}
	w.buf = bufio.NewWriterSize(out, 256*1024)
	return w, nil
}

// NewTo writes to an existing writer, without OTLP export.
func NewTo(out io.Writer, format string) *Writer {
	if format == "" {
		format = "text"
	}
	return &Writer{buf: bufio.NewWriter(out), format: strings.ToLower(format)}
}

func (w *Writer) Write(r *Report) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("writer closed")
	}

	var err error
	switch w.format {
	case "json":
		err = writeJSON(w.buf, r)
	case "csv":
		err = writeCSV(w.buf, r)
	case "sarif":
		err = writeSARIF(w.buf, r, w.infoURI)
	case "text":
		err = writeText(w.buf, r)
	default:
		err = fmt.Errorf("unsupported output format %q", w.format)
	}
	if err != nil {
		return err
	}
	w.emitReport(r)
	return w.buf.Flush()
}

func (w *Writer) emitReport(r *Report) {
	if w.otel == nil {
		return
	}
	w.otel.Emit("archive", r.Archive)
	for _, f := range r.Findings {
		w.otel.Emit("finding", findingRecord{ScanID: r.ScanID, Entry: r.EntryFor(f.Class), Finding: f})
	}
	w.otel.Emit("metrics", r.Metrics)
}

// Close flushes pending output, closes the report file and drains the
// exporter. It is safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	var err error
	if w.buf != nil {
		err = w.buf.Flush()
	}
	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
	}
	w.otel.Shutdown()
	return err
}

var csvHeader = []string{
	"record_type", "schema_version", "scan_id", "category", "risk",
	"class", "method", "entry", "summary", "details", "line", "payload",
}

func writeCSV(out io.Writer, r *Report) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	row := func(recordType string, payload any) error {
		data, err := jsonMarshal(payload)
		if err != nil {
			return err
		}
		rec := make([]string, len(csvHeader))
		rec[0], rec[1], rec[2] = recordType, r.SchemaVersion, r.ScanID
		rec[len(rec)-1] = string(data)
		return cw.Write(rec)
	}
	if err := row("archive", r.Archive); err != nil {
		return err
	}
	for _, f := range r.Findings {
		rec := []string{
			"finding", r.SchemaVersion, r.ScanID,
			f.Category.String(), f.Risk.String(),
			f.Class, f.Method, r.EntryFor(f.Class),
			f.Summary, f.Details, strconv.Itoa(f.Line), "",
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	for _, ce := range r.CheckErrors {
		if err := row("check_error", ce); err != nil {
			return err
		}
	}
	if err := row("metrics", r.Metrics); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
