package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"jarsentry/archive"
	"jarsentry/fuzzy"
	"jarsentry/hasher"
	"jarsentry/scanner"
	"jarsentry/threat"
	"jarsentry/utils"
)

type Config struct {
	Checks              []string          `json:"checks" yaml:"checks"`
	OutputFormat        string            `json:"output_format" yaml:"output_format"`
	OutputFile          string            `json:"output_file" yaml:"output_file"`
	LogLevel            string            `json:"log_level" yaml:"log_level"`
	LogFormat           string            `json:"log_format" yaml:"log_format"`
	Concurrency         int               `json:"concurrency" yaml:"concurrency"`
	MaxEntrySize        int64             `json:"max_entry_size" yaml:"max_entry_size"`
	EntriesPerSecond    int               `json:"entries_per_second" yaml:"entries_per_second"`
	MmapMinSize         int64             `json:"mmap_min_size" yaml:"mmap_min_size"`
	ArchiveExtensions   []string          `json:"archive_extensions" yaml:"archive_extensions"`
	IncludePatterns     []string          `json:"include_patterns" yaml:"include_patterns"`
	ExcludePatterns     []string          `json:"exclude_patterns" yaml:"exclude_patterns"`
	HashAlgorithms      []string          `json:"hash_algorithms" yaml:"hash_algorithms"`
	FuzzyHash           bool              `json:"fuzzy_hash" yaml:"fuzzy_hash"`
	FuzzyAlgorithms     []string          `json:"fuzzy_algorithms" yaml:"fuzzy_algorithms"`
	Dedupe              bool              `json:"dedupe" yaml:"dedupe"`
	MinRisk             string            `json:"min_risk" yaml:"min_risk"`
	StallTimeout        time.Duration     `json:"stall_timeout" yaml:"stall_timeout"`
	DiagDir             string            `json:"diag_dir" yaml:"diag_dir"`
	TraceFlight         bool              `json:"trace_flight" yaml:"trace_flight"`
	TraceFlightMaxBytes uint64            `json:"trace_flight_max_bytes" yaml:"trace_flight_max_bytes"`
	TraceFlightMinAge   time.Duration     `json:"trace_flight_min_age" yaml:"trace_flight_min_age"`
	OtelEndpoint        string            `json:"otel_endpoint" yaml:"otel_endpoint"`
	OtelFromEnv         bool              `json:"otel_from_env" yaml:"otel_from_env"`
	OtelHeaders         map[string]string `json:"otel_headers" yaml:"otel_headers"`
	OtelServiceName     string            `json:"otel_service_name" yaml:"otel_service_name"`
	OtelTimeout         time.Duration     `json:"otel_timeout" yaml:"otel_timeout"`
	OtelExportPaths     bool              `json:"otel_export_paths" yaml:"otel_export_paths"`
	OtelExportDetails   bool              `json:"otel_export_details" yaml:"otel_export_details"`
	NoProgress          bool              `json:"no_progress" yaml:"no_progress"`
	SarifInformationURI string            `json:"sarif_information_uri" yaml:"sarif_information_uri"`
	ConfigFile          string            `json:"-" yaml:"-"`
}

var outputFormats = []string{"text", "json", "csv", "sarif"}

func Default() *Config {
	return &Config{
		Checks:            checkIDs(scanner.DefaultChecks()),
		OutputFormat:      "text",
		OutputFile:        "",
		LogLevel:          "info",
		LogFormat:         "text",
		Concurrency:       runtime.NumCPU(),
		MaxEntrySize:      archive.DefaultMaxEntrySize,
		EntriesPerSecond:  0,
		MmapMinSize:       archive.DefaultMmapMinSize,
		ArchiveExtensions: append([]string(nil), archive.DefaultExtensions...),
		HashAlgorithms:    []string{"sha256"},
		FuzzyAlgorithms:   []string{},
		Dedupe:            true,
		MinRisk:           threat.Low.String(),
		StallTimeout:      0,
		DiagDir:           "",
		OtelHeaders:       map[string]string{},
		OtelServiceName:   "jarsentry",
		OtelTimeout:       5 * time.Second,
	}
}

func checkIDs(cfg scanner.CheckConfig) []string {
	var ids []string
	for _, kind := range cfg.Kinds() {
		ids = append(ids, kind.ID())
	}
	return ids
}

// RegisterFlags declares every configuration flag on fs with the defaults
// as flag defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "Path to a YAML or JSON configuration file")
	fs.StringSlice("checks", d.Checks, "Checks to run: url, encryption, web, command, socket")
	fs.StringP("format", "f", d.OutputFormat, "Report format: "+strings.Join(outputFormats, ", "))
	fs.StringP("output", "o", d.OutputFile, "Report file (default: stdout)")
	fs.String("log-level", d.LogLevel, "Log level: debug, info, warn, error")
	fs.String("log-format", d.LogFormat, "Log format: text or json")
	fs.IntP("concurrency", "c", d.Concurrency, "Worker count for entry decoding and class scanning")
	fs.Int64("max-entry-size", d.MaxEntrySize, "Maximum bytes read from one archive entry")
	fs.Int("entries-per-second", d.EntriesPerSecond, "Throttle entry decoding (0 disables)")
	fs.Int64("mmap-min-size", d.MmapMinSize, "Archive size at which the file is memory mapped (negative disables)")
	fs.StringSlice("extensions", d.ArchiveExtensions, "Accepted archive extensions")
	fs.StringSlice("include", nil, "Only decode entries matching these glob or regex patterns")
	fs.StringSlice("exclude", nil, "Skip entries matching these glob or regex patterns")
	fs.StringSlice("hashes", d.HashAlgorithms, "Archive digests: "+strings.Join(hasher.Supported(), ", "))
	fs.Bool("fuzzy-hash", d.FuzzyHash, "Add a fuzzy digest of the archive")
	fs.StringSlice("fuzzy-algorithms", d.FuzzyAlgorithms, "Fuzzy digest algorithms (default: tlsh when --fuzzy-hash is set)")
	fs.Bool("dedupe", d.Dedupe, "Drop findings with the same category, class, method and summary")
	fs.String("min-risk", d.MinRisk, "Lowest risk level to report: Low, Medium, High, Critical")
	fs.Duration("stall-timeout", d.StallTimeout, "Report a stall when no class is scanned for this long (0 disables)")
	fs.String("diag-dir", d.DiagDir, "Directory for stall diagnostics (default: log only)")
	fs.Bool("trace-flight", d.TraceFlight, "Keep a runtime flight recorder and dump it on stalls")
	fs.Uint64("trace-flight-max-bytes", d.TraceFlightMaxBytes, "Flight recorder buffer size (0 uses the runtime default)")
	fs.Duration("trace-flight-min-age", d.TraceFlightMinAge, "Minimum age of retained trace events")
	fs.String("otel-endpoint", d.OtelEndpoint, "OTLP/HTTP logs endpoint")
	fs.Bool("otel-from-env", d.OtelFromEnv, "Fall back to OTEL_EXPORTER_OTLP_* environment variables")
	fs.StringToString("otel-headers", nil, "OTLP headers as key=value pairs")
	fs.String("otel-service-name", d.OtelServiceName, "OTEL service name")
	fs.Duration("otel-timeout", d.OtelTimeout, "OTEL export timeout")
	fs.Bool("otel-export-paths", d.OtelExportPaths, "Include archive paths in OTEL records")
	fs.Bool("otel-export-details", d.OtelExportDetails, "Include finding details in OTEL records")
	fs.Bool("no-progress", d.NoProgress, "Disable the progress spinner")
	fs.String("sarif-info-uri", d.SarifInformationURI, "informationUri of the SARIF tool driver (omitted when empty)")
}

// Load builds the effective configuration: defaults, then the config file,
// then every flag the user set explicitly.
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	if path, err := fs.GetString("config"); err == nil && path != "" {
		cfg.ConfigFile = path
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}

	var visitErr error
	fs.Visit(func(f *pflag.Flag) {
		if visitErr != nil {
			return
		}
		visitErr = cfg.applyFlag(fs, f.Name)
	})
	if visitErr != nil {
		return nil, visitErr
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyFlag(fs *pflag.FlagSet, name string) error {
	var err error
	switch name {
	case "checks":
		cfg.Checks, err = fs.GetStringSlice(name)
	case "format":
		cfg.OutputFormat, err = fs.GetString(name)
	case "output":
		cfg.OutputFile, err = fs.GetString(name)
	case "log-level":
		cfg.LogLevel, err = fs.GetString(name)
	case "log-format":
		cfg.LogFormat, err = fs.GetString(name)
	case "concurrency":
		cfg.Concurrency, err = fs.GetInt(name)
	case "max-entry-size":
		cfg.MaxEntrySize, err = fs.GetInt64(name)
	case "entries-per-second":
		cfg.EntriesPerSecond, err = fs.GetInt(name)
	case "mmap-min-size":
		cfg.MmapMinSize, err = fs.GetInt64(name)
	case "extensions":
		cfg.ArchiveExtensions, err = fs.GetStringSlice(name)
	case "include":
		cfg.IncludePatterns, err = fs.GetStringSlice(name)
	case "exclude":
		cfg.ExcludePatterns, err = fs.GetStringSlice(name)
	case "hashes":
		cfg.HashAlgorithms, err = fs.GetStringSlice(name)
	case "fuzzy-hash":
		cfg.FuzzyHash, err = fs.GetBool(name)
	case "fuzzy-algorithms":
		cfg.FuzzyAlgorithms, err = fs.GetStringSlice(name)
	case "dedupe":
		cfg.Dedupe, err = fs.GetBool(name)
	case "min-risk":
		cfg.MinRisk, err = fs.GetString(name)
	case "stall-timeout":
		cfg.StallTimeout, err = fs.GetDuration(name)
	case "diag-dir":
		cfg.DiagDir, err = fs.GetString(name)
	case "trace-flight":
		cfg.TraceFlight, err = fs.GetBool(name)
	case "trace-flight-max-bytes":
		cfg.TraceFlightMaxBytes, err = fs.GetUint64(name)
	case "trace-flight-min-age":
		cfg.TraceFlightMinAge, err = fs.GetDuration(name)
	case "otel-endpoint":
		cfg.OtelEndpoint, err = fs.GetString(name)
	case "otel-from-env":
		cfg.OtelFromEnv, err = fs.GetBool(name)
	case "otel-headers":
		cfg.OtelHeaders, err = fs.GetStringToString(name)
	case "otel-service-name":
		cfg.OtelServiceName, err = fs.GetString(name)
	case "otel-timeout":
		cfg.OtelTimeout, err = fs.GetDuration(name)
	case "otel-export-paths":
		cfg.OtelExportPaths, err = fs.GetBool(name)
	case "otel-export-details":
		cfg.OtelExportDetails, err = fs.GetBool(name)
	case "no-progress":
		cfg.NoProgress, err = fs.GetBool(name)
	case "sarif-info-uri":
		cfg.SarifInformationURI, err = fs.GetString(name)
	}
	if err != nil {
		return fmt.Errorf("flag --%s: %w", name, err)
	}
	return nil
}

func (cfg *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json":
		err = json.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config file type %q (use .yaml, .yml or .json)", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("invalid config file format: %w", err)
	}
	return nil
}

func (cfg *Config) normalize() {
	cfg.OutputFormat = strings.ToLower(strings.TrimSpace(cfg.OutputFormat))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.OtelEndpoint = strings.TrimSpace(cfg.OtelEndpoint)
	cfg.OtelServiceName = strings.TrimSpace(cfg.OtelServiceName)
	cfg.DiagDir = strings.TrimSpace(cfg.DiagDir)
	cfg.Checks = normalizeList(cfg.Checks)
	cfg.HashAlgorithms = normalizeList(cfg.HashAlgorithms)
	cfg.FuzzyAlgorithms = normalizeList(cfg.FuzzyAlgorithms)
	if cfg.OutputFile == "-" {
		cfg.OutputFile = ""
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.OtelServiceName == "" {
		cfg.OtelServiceName = "jarsentry"
	}
	if cfg.FuzzyHash && len(cfg.FuzzyAlgorithms) == 0 {
		cfg.FuzzyAlgorithms = []string{"tlsh"}
	}
	if len(cfg.FuzzyAlgorithms) > 0 {
		cfg.FuzzyHash = true
	}
	exts := make([]string, 0, len(cfg.ArchiveExtensions))
	for _, ext := range cfg.ArchiveExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	cfg.ArchiveExtensions = exts
}

func (cfg *Config) Validate() error {
	if !contains(outputFormats, cfg.OutputFormat) {
		return fmt.Errorf("invalid output format: %s (supported: %s)", cfg.OutputFormat, strings.Join(outputFormats, ", "))
	}
	if len(cfg.Checks) == 0 {
		return fmt.Errorf("at least one check must be enabled")
	}
	if _, err := scanner.CheckConfigFromIDs(cfg.Checks); err != nil {
		return err
	}
	if err := hasher.Validate(cfg.HashAlgorithms); err != nil {
		return err
	}
	for _, name := range cfg.FuzzyAlgorithms {
		if _, ok := fuzzy.Lookup(name); !ok {
			return fmt.Errorf("unsupported fuzzy hash algorithm %q (supported: %s)", name, strings.Join(fuzzy.Available(), ", "))
		}
	}
	if _, err := threat.ParseRiskLevel(cfg.MinRisk); err != nil {
		return err
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	if cfg.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if cfg.MaxEntrySize <= 0 {
		return fmt.Errorf("max-entry-size must be positive")
	}
	if cfg.EntriesPerSecond < 0 {
		return fmt.Errorf("entries-per-second must be zero or positive")
	}
	if len(cfg.ArchiveExtensions) == 0 {
		return fmt.Errorf("at least one archive extension is required")
	}
	if cfg.StallTimeout < 0 {
		return fmt.Errorf("stall-timeout must be zero or positive")
	}
	if cfg.TraceFlightMinAge < 0 {
		return fmt.Errorf("trace-flight-min-age must be zero or positive")
	}
	if cfg.OtelTimeout < 0 {
		return fmt.Errorf("otel-timeout must be zero or positive")
	}
	if cfg.OtelEndpoint != "" &&
		!strings.HasPrefix(cfg.OtelEndpoint, "http://") && !strings.HasPrefix(cfg.OtelEndpoint, "https://") {
		return fmt.Errorf("otel-endpoint must include scheme (http or https)")
	}
	if cfg.SarifInformationURI != "" {
		if u, err := url.Parse(cfg.SarifInformationURI); err != nil || !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("sarif-info-uri must be an absolute URI")
		}
	}
	return nil
}

// CheckConfig converts the check list. Validate must have passed.
func (cfg *Config) CheckConfig() scanner.CheckConfig {
	checks, _ := scanner.CheckConfigFromIDs(cfg.Checks)
	return checks
}

func (cfg *Config) MinRiskLevel() threat.RiskLevel {
	level, _ := threat.ParseRiskLevel(cfg.MinRisk)
	return level
}

func (cfg *Config) SessionOptions() scanner.Options {
	opts := scanner.Options{
		Concurrency: cfg.Concurrency,
		Loader: archive.Options{
			Extensions:       cfg.ArchiveExtensions,
			Concurrency:      cfg.Concurrency,
			MaxEntrySize:     cfg.MaxEntrySize,
			EntriesPerSecond: cfg.EntriesPerSecond,
			MmapMinSize:      cfg.MmapMinSize,
		},
	}
	if len(cfg.IncludePatterns) > 0 || len(cfg.ExcludePatterns) > 0 {
		opts.Loader.Filter = utils.NewPatternMatcher(cfg.IncludePatterns, cfg.ExcludePatterns)
	}
	return opts
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" || contains(out, item) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func contains(items []string, value string) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}
