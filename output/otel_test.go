package output

import (
	"testing"

	otelLog "go.opentelemetry.io/otel/log"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"jarsentry/config"
	"jarsentry/threat"
)

func findAttr(kvs []otelLog.KeyValue, key string) (otelLog.Value, bool) {
	for _, kv := range kvs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return otelLog.Value{}, false
}

func TestResolveOtelEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "https://logs.example.test/v1/logs")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "https://fallback.example.test")

	cfg := &config.Config{OtelEndpoint: "  https://explicit.example.test  ", OtelFromEnv: true}
	if got := resolveOtelEndpoint(cfg); got != "https://explicit.example.test" {
		t.Fatalf("expected explicit endpoint, got %q", got)
	}

	cfg = &config.Config{OtelFromEnv: true}
	if got := resolveOtelEndpoint(cfg); got != "https://logs.example.test/v1/logs" {
		t.Fatalf("expected logs env endpoint, got %q", got)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "")
	if got := resolveOtelEndpoint(cfg); got != "https://fallback.example.test" {
		t.Fatalf("expected fallback env endpoint, got %q", got)
	}

	cfg = &config.Config{OtelFromEnv: false}
	if got := resolveOtelEndpoint(cfg); got != "" {
		t.Fatalf("expected empty endpoint when env fallback disabled, got %q", got)
	}
}

func TestNewOtelLoggerDisabledWithoutEndpoint(t *testing.T) {
	o, err := newOtelLogger(&config.Config{})
	if err != nil || o != nil {
		t.Fatalf("expected no exporter, got %v (err=%v)", o, err)
	}
	if o.Endpoint() != "" {
		t.Fatal("nil logger should report an empty endpoint")
	}
	o.Emit("finding", map[string]any{"risk": "High"})
	o.Shutdown()
}

func TestNewOtelLoggerRejectsSchemeless(t *testing.T) {
	if _, err := newOtelLogger(&config.Config{OtelEndpoint: "collector:4318"}); err == nil {
		t.Fatal("expected error for endpoint without scheme")
	}
}

func TestSanitizePayload(t *testing.T) {
	archive := payloadToMap(ArchiveInfo{Path: "/home/alice/app.jar", Name: "app.jar", Size: 10})
	sanitized := sanitizePayload("archive", archive, otelPolicy{})
	if _, ok := sanitized["path"]; ok {
		t.Fatal("expected archive path to be stripped")
	}
	if _, ok := archive["path"]; !ok {
		t.Fatal("expected input payload to remain unchanged")
	}
	if kept := sanitizePayload("archive", archive, otelPolicy{includePaths: true}); kept["path"] != "/home/alice/app.jar" {
		t.Fatalf("expected path with includePaths, got %v", kept["path"])
	}

	finding := payloadToMap(findingRecord{
		ScanID:  "id",
		Entry:   "a/B.class",
		Finding: threat.New(threat.CommandExecution, threat.High, "a/B", "run", "Command execution", "cmd /c secret"),
	})
	if _, ok := sanitizePayload("finding", finding, otelPolicy{})["details"]; ok {
		t.Fatal("expected finding details to be stripped")
	}
	if got := sanitizePayload("finding", finding, otelPolicy{includeDetails: true})["details"]; got != "cmd /c secret" {
		t.Fatalf("expected details with includeDetails, got %v", got)
	}
}

func TestSemanticAttributesArchive(t *testing.T) {
	data := payloadToMap(ArchiveInfo{
		Path:   "/tmp/dir/app.jar",
		Name:   "app.jar",
		Size:   42,
		Hashes: map[string]string{"sha256": "abc123"},
	})
	attrs := semanticAttributes("archive", data, otelPolicy{includePaths: true})
	if value, ok := findAttr(attrs, string(semconv.FilePathKey)); !ok || value.AsString() != "/tmp/dir/app.jar" {
		t.Fatalf("expected file path attribute, got %#v", value)
	}
	if value, ok := findAttr(attrs, string(semconv.FileNameKey)); !ok || value.AsString() != "app.jar" {
		t.Fatalf("expected file name attribute, got %#v", value)
	}
	if value, ok := findAttr(attrs, string(semconv.FileExtensionKey)); !ok || value.AsString() != "jar" {
		t.Fatalf("expected file extension attribute, got %#v", value)
	}
	if value, ok := findAttr(attrs, string(semconv.FileSizeKey)); !ok || value.AsInt64() != 42 {
		t.Fatalf("expected file size attribute, got %#v", value)
	}
	if _, ok := findAttr(attrs, "jarsentry.archive.hash.sha256"); !ok {
		t.Fatal("expected hash attribute")
	}

	noPaths := semanticAttributes("archive", data, otelPolicy{})
	if _, ok := findAttr(noPaths, string(semconv.FilePathKey)); ok {
		t.Fatal("did not expect file path attribute when paths are disabled")
	}
}

func TestSemanticAttributesFinding(t *testing.T) {
	data := payloadToMap(findingRecord{
		ScanID:  "scan-1",
		Entry:   "com/x/Main.class",
		Finding: threat.New(threat.Encryption, threat.Critical, "com/x/Main", "decrypt", "Data decryption", "AES"),
	})
	attrs := semanticAttributes("finding", data, otelPolicy{})
	if value, ok := findAttr(attrs, string(semconv.CodeNamespaceKey)); !ok || value.AsString() != "com.x.Main" {
		t.Fatalf("expected code namespace, got %#v", value)
	}
	if value, ok := findAttr(attrs, string(semconv.CodeFunctionKey)); !ok || value.AsString() != "decrypt" {
		t.Fatalf("expected code function, got %#v", value)
	}
	if value, ok := findAttr(attrs, "jarsentry.finding.category"); !ok || value.AsString() != "Encryption/Decryption" {
		t.Fatalf("expected category, got %#v", value)
	}
	if _, ok := findAttr(attrs, string(semconv.CodeLineNumberKey)); ok {
		t.Fatal("did not expect a line number for findings without one")
	}
	if _, ok := findAttr(attrs, "jarsentry.finding.details"); ok {
		t.Fatal("did not expect details without includeDetails")
	}
	if got := recordSeverity("finding", data); got != otelLog.SeverityFatal {
		t.Fatalf("expected fatal severity for critical finding, got %v", got)
	}
}

func TestMetricsSemanticAttributes(t *testing.T) {
	data := payloadToMap(Metrics{StartTime: "2026-03-01T10:00:00Z", ClassesScanned: 7, FindingsReported: 3})
	attrs := semanticAttributes("metrics", data, otelPolicy{})
	if value, ok := findAttr(attrs, "jarsentry.metrics.classes_scanned"); !ok || value.AsInt64() != 7 {
		t.Fatalf("expected classes_scanned=7, got %#v", value)
	}
	if value, ok := findAttr(attrs, "jarsentry.metrics.start_time"); !ok || value.AsString() != "2026-03-01T10:00:00Z" {
		t.Fatalf("expected start time, got %#v", value)
	}
	if got := recordSeverity("metrics", data); got != otelLog.SeverityInfo {
		t.Fatalf("expected info severity, got %v", got)
	}
}

func TestToLogValueNormalizesNumbers(t *testing.T) {
	if v := toLogValue(float64(3)); v.Kind() != otelLog.KindInt64 || v.AsInt64() != 3 {
		t.Fatalf("expected integral float to become int64, got %#v", v)
	}
	if v := toLogValue(1.5); v.Kind() != otelLog.KindFloat64 {
		t.Fatalf("expected float, got %#v", v)
	}
	if v := toLogValue(nil); v.Kind() != otelLog.KindEmpty {
		t.Fatalf("expected empty value, got %#v", v)
	}
}
