package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	otelLog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"jarsentry/config"
	"jarsentry/logger"
	"jarsentry/threat"
)

type otelLogger struct {
	provider *sdklog.LoggerProvider
	logger   otelLog.Logger
	timeout  time.Duration
	endpoint string
	policy   otelPolicy
}

type otelPolicy struct {
	includePaths   bool
	includeDetails bool
}

// findingRecord is the exported shape of one finding.
type findingRecord struct {
	ScanID string `json:"scan_id"`
	Entry  string `json:"entry"`
	threat.Finding
}

func newOtelLogger(cfg *config.Config) (*otelLogger, error) {
	if cfg == nil {
		return nil, nil
	}
	endpoint := resolveOtelEndpoint(cfg)
	if endpoint == "" {
		return nil, nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("otel endpoint must include scheme (http or https)")
	}

	opts := []otlploghttp.Option{otlploghttp.WithEndpointURL(endpoint)}
	if len(cfg.OtelHeaders) > 0 {
		opts = append(opts, otlploghttp.WithHeaders(cfg.OtelHeaders))
	}
	if cfg.OtelTimeout > 0 {
		opts = append(opts, otlploghttp.WithTimeout(cfg.OtelTimeout))
	}

	exp, err := otlploghttp.New(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	serviceName := cfg.OtelServiceName
	if serviceName == "" {
		serviceName = toolName
	}
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)
	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(res),
	)

	return &otelLogger{
		provider: provider,
		logger:   provider.Logger(toolName),
		timeout:  cfg.OtelTimeout,
		endpoint: endpoint,
		policy: otelPolicy{
			includePaths:   cfg.OtelExportPaths,
			includeDetails: cfg.OtelExportDetails,
		},
	}, nil
}

func resolveOtelEndpoint(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	if endpoint := strings.TrimSpace(cfg.OtelEndpoint); endpoint != "" {
		return endpoint
	}
	if !cfg.OtelFromEnv {
		return ""
	}
	if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT")); endpoint != "" {
		return endpoint
	}
	return strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
}

func (o *otelLogger) Endpoint() string {
	if o == nil {
		return ""
	}
	return o.endpoint
}

func (o *otelLogger) Emit(recordType string, payload any) {
	if o == nil || o.logger == nil {
		return
	}
	data := sanitizePayload(recordType, payloadToMap(payload), o.policy)

	now := time.Now()
	var record otelLog.Record
	record.SetTimestamp(now)
	record.SetObservedTimestamp(now)
	record.SetEventName("jarsentry.record")
	record.SetSeverity(recordSeverity(recordType, data))
	record.AddAttributes(
		otelLog.String("record_type", recordType),
		otelLog.String("schema_version", SchemaVersion),
	)
	if attrs := semanticAttributes(recordType, data, o.policy); len(attrs) > 0 {
		record.AddAttributes(attrs...)
	}
	if data != nil {
		record.SetBody(toLogValue(data))
	}
	o.logger.Emit(context.Background(), record)
}

func (o *otelLogger) Shutdown() {
	if o == nil || o.provider == nil {
		return
	}
	timeout := o.timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := o.provider.Shutdown(ctx); err != nil {
		logger.Debugf("OTEL shutdown failed: %v", err)
	}
}

func recordSeverity(recordType string, data map[string]any) otelLog.Severity {
	if recordType != "finding" {
		return otelLog.SeverityInfo
	}
	switch getStringField(data, "risk") {
	case threat.Critical.String():
		return otelLog.SeverityFatal
	case threat.High.String():
		return otelLog.SeverityError
	case threat.Medium.String():
		return otelLog.SeverityWarn
	default:
		return otelLog.SeverityInfo
	}
}

// sanitizePayload strips host paths and finding details unless the policy
// allows them. The input map is not modified.
func sanitizePayload(recordType string, data map[string]any, policy otelPolicy) map[string]any {
	if len(data) == 0 {
		return data
	}
	switch recordType {
	case "archive":
		if policy.includePaths {
			return data
		}
		sanitized := cloneMap(data)
		delete(sanitized, "path")
		return sanitized
	case "finding":
		if policy.includeDetails {
			return data
		}
		sanitized := cloneMap(data)
		delete(sanitized, "details")
		return sanitized
	default:
		return data
	}
}

func cloneMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func toLogValue(value any) otelLog.Value {
	switch v := value.(type) {
	case nil:
		return otelLog.Value{}
	case string:
		return otelLog.StringValue(v)
	case bool:
		return otelLog.BoolValue(v)
	case int:
		return otelLog.IntValue(v)
	case int64:
		return otelLog.Int64Value(v)
	case float64:
		if v == float64(int64(v)) {
			return otelLog.Int64Value(int64(v))
		}
		return otelLog.Float64Value(v)
	case map[string]any:
		kvs := make([]otelLog.KeyValue, 0, len(v))
		for key, item := range v {
			kvs = append(kvs, otelLog.KeyValue{Key: key, Value: toLogValue(item)})
		}
		return otelLog.MapValue(kvs...)
	case map[string]string:
		kvs := make([]otelLog.KeyValue, 0, len(v))
		for k, val := range v {
			kvs = append(kvs, otelLog.String(k, val))
		}
		return otelLog.MapValue(kvs...)
	case []string:
		values := make([]otelLog.Value, 0, len(v))
		for _, item := range v {
			values = append(values, otelLog.StringValue(item))
		}
		return otelLog.SliceValue(values...)
	case []any:
		values := make([]otelLog.Value, 0, len(v))
		for _, item := range v {
			values = append(values, toLogValue(item))
		}
		return otelLog.SliceValue(values...)
	default:
		return otelLog.StringValue(fmt.Sprint(v))
	}
}

func semanticAttributes(recordType string, data map[string]any, policy otelPolicy) []otelLog.KeyValue {
	if len(data) == 0 {
		return nil
	}
	switch recordType {
	case "archive":
		return archiveSemanticAttributes(data, policy)
	case "finding":
		return findingSemanticAttributes(data, policy)
	case "metrics":
		return metricsSemanticAttributes(data)
	default:
		return nil
	}
}

func archiveSemanticAttributes(data map[string]any, policy otelPolicy) []otelLog.KeyValue {
	var kvs []otelLog.KeyValue

	path := getStringField(data, "path")
	name := getStringField(data, "name")
	if name == "" && path != "" {
		name = filepath.Base(path)
	}
	if policy.includePaths && path != "" {
		kvs = append(kvs, otelLog.String(string(semconv.FilePathKey), path))
		kvs = append(kvs, otelLog.String(string(semconv.FileDirectoryKey), filepath.Dir(path)))
	}
	if name != "" {
		kvs = append(kvs, otelLog.String(string(semconv.FileNameKey), name))
		if ext := strings.TrimPrefix(filepath.Ext(name), "."); ext != "" {
			kvs = append(kvs, otelLog.String(string(semconv.FileExtensionKey), ext))
		}
	}
	if size, ok := getInt64Field(data, "size"); ok {
		kvs = append(kvs, otelLog.Int64(string(semconv.FileSizeKey), size))
	}
	kvs = appendStringAttr(kvs, "jarsentry.archive.mod_time", getStringField(data, "mod_time"))
	kvs = appendStringAttr(kvs, "jarsentry.archive.access_time", getStringField(data, "access_time"))
	kvs = appendStringAttr(kvs, "jarsentry.archive.change_time", getStringField(data, "change_time"))
	kvs = appendStringAttr(kvs, "jarsentry.archive.birth_time", getStringField(data, "birth_time"))

	for _, field := range []string{"hashes", "fuzzy_hashes"} {
		prefix := "jarsentry.archive.hash."
		if field == "fuzzy_hashes" {
			prefix = "jarsentry.archive.fuzzy_hash."
		}
		for algo, value := range getStringMapField(data, field) {
			kvs = appendStringAttr(kvs, prefix+algo, value)
		}
	}
	return kvs
}

func findingSemanticAttributes(data map[string]any, policy otelPolicy) []otelLog.KeyValue {
	var kvs []otelLog.KeyValue
	kvs = appendStringAttr(kvs, "jarsentry.scan_id", getStringField(data, "scan_id"))
	kvs = appendStringAttr(kvs, "jarsentry.finding.category", getStringField(data, "category"))
	kvs = appendStringAttr(kvs, "jarsentry.finding.risk", getStringField(data, "risk"))
	kvs = appendStringAttr(kvs, string(semconv.CodeNamespaceKey), strings.ReplaceAll(getStringField(data, "class"), "/", "."))
	kvs = appendStringAttr(kvs, string(semconv.CodeFunctionKey), getStringField(data, "method"))
	kvs = appendStringAttr(kvs, string(semconv.CodeFilepathKey), getStringField(data, "entry"))
	kvs = appendStringAttr(kvs, "jarsentry.finding.summary", getStringField(data, "summary"))
	if line, ok := getInt64Field(data, "line"); ok && line > 0 {
		kvs = append(kvs, otelLog.Int64(string(semconv.CodeLineNumberKey), line))
	}
	if policy.includeDetails {
		kvs = appendStringAttr(kvs, "jarsentry.finding.details", getStringField(data, "details"))
	}
	return kvs
}

func metricsSemanticAttributes(data map[string]any) []otelLog.KeyValue {
	var kvs []otelLog.KeyValue
	kvs = appendStringAttr(kvs, "jarsentry.metrics.start_time", getStringField(data, "start_time"))
	kvs = appendStringAttr(kvs, "jarsentry.metrics.end_time", getStringField(data, "end_time"))
	for _, key := range []string{
		"duration_ms", "classes_scanned", "checks_run", "checks_failed",
		"entries_failed", "findings_total", "findings_reported",
	} {
		if v, ok := getInt64Field(data, key); ok {
			kvs = append(kvs, otelLog.Int64("jarsentry.metrics."+key, v))
		}
	}
	return kvs
}

func payloadToMap(payload any) map[string]any {
	switch v := payload.(type) {
	case nil:
		return nil
	case map[string]any:
		return v
	default:
		data, err := jsonMarshal(payload)
		if err != nil {
			return nil
		}
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			return nil
		}
		return decoded
	}
}

func getStringField(values map[string]any, key string) string {
	value, ok := values[key]
	if !ok || value == nil {
		return ""
	}
	if str, ok := value.(string); ok {
		return str
	}
	return fmt.Sprint(value)
}

func getInt64Field(values map[string]any, key string) (int64, bool) {
	value, ok := values[key]
	if !ok || value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case json.Number:
		if parsed, err := v.Int64(); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

func getStringMapField(values map[string]any, key string) map[string]string {
	switch v := values[key].(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, val := range v {
			if val != nil {
				out[k] = fmt.Sprint(val)
			}
		}
		return out
	default:
		return nil
	}
}

func appendStringAttr(kvs []otelLog.KeyValue, key, value string) []otelLog.KeyValue {
	if value == "" {
		return kvs
	}
	return append(kvs, otelLog.String(key, value))
}
