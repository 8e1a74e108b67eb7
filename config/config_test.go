package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"jarsentry/scanner"
	"jarsentry/threat"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return fs
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newFlagSet(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OutputFormat != "text" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if got := cfg.CheckConfig(); got != scanner.DefaultChecks() {
		t.Fatalf("expected default checks, got %+v", got)
	}
	if cfg.MinRiskLevel() != threat.Low {
		t.Fatalf("expected Low min risk, got %s", cfg.MinRiskLevel())
	}
	if !cfg.Dedupe {
		t.Fatal("dedupe should default to on")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeFile(t, "jarsentry.yaml", `
checks: [url, command]
output_format: SARIF
stall_timeout: 30s
hash_algorithms: [md5, blake3]
fuzzy_hash: true
otel_headers:
  x-api-key: secret
`)
	cfg, err := Load(newFlagSet(t, "--config", path))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OutputFormat != "sarif" {
		t.Fatalf("expected sarif, got %s", cfg.OutputFormat)
	}
	if cfg.StallTimeout != 30*time.Second {
		t.Fatalf("expected 30s stall timeout, got %s", cfg.StallTimeout)
	}
	checks := cfg.CheckConfig()
	if !checks.URL || !checks.CommandExecution || checks.Encryption {
		t.Fatalf("unexpected checks: %+v", checks)
	}
	if len(cfg.FuzzyAlgorithms) != 1 || cfg.FuzzyAlgorithms[0] != "tlsh" {
		t.Fatalf("expected tlsh as default fuzzy algorithm, got %v", cfg.FuzzyAlgorithms)
	}
	if cfg.OtelHeaders["x-api-key"] != "secret" {
		t.Fatalf("headers not loaded: %v", cfg.OtelHeaders)
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeFile(t, "cfg.json", `{"output_format":"csv","concurrency":3,"min_risk":"Medium"}`)
	cfg, err := Load(newFlagSet(t, "--config", path, "--format", "json", "--checks", "web", "--extensions", "jar,WAR"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OutputFormat != "json" {
		t.Fatalf("flag should override file, got %s", cfg.OutputFormat)
	}
	if cfg.Concurrency != 3 {
		t.Fatalf("file value should survive when the flag is unset, got %d", cfg.Concurrency)
	}
	if cfg.MinRiskLevel() != threat.Medium {
		t.Fatalf("expected Medium, got %s", cfg.MinRiskLevel())
	}
	if got := cfg.CheckConfig().Kinds(); len(got) != 1 || got[0] != scanner.CheckWebConnection {
		t.Fatalf("unexpected checks: %v", got)
	}
	if len(cfg.ArchiveExtensions) != 2 || cfg.ArchiveExtensions[0] != ".jar" || cfg.ArchiveExtensions[1] != ".war" {
		t.Fatalf("extensions not normalized: %v", cfg.ArchiveExtensions)
	}
	opts := cfg.SessionOptions()
	if opts.Loader.Concurrency != 3 || opts.Loader.Filter != nil {
		t.Fatalf("unexpected session options: %+v", opts)
	}
}

func TestLoadRejectsBadFiles(t *testing.T) {
	if _, err := Load(newFlagSet(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))); err == nil {
		t.Fatal("expected error for missing config file")
	}
	if _, err := Load(newFlagSet(t, "--config", writeFile(t, "cfg.toml", "x = 1"))); err == nil {
		t.Fatal("expected error for unsupported config type")
	}
	if _, err := Load(newFlagSet(t, "--config", writeFile(t, "cfg.json", "{"))); err == nil {
		t.Fatal("expected error for malformed json")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"format":      func(c *Config) { c.OutputFormat = "xml" },
		"no checks":   func(c *Config) { c.Checks = nil },
		"check":       func(c *Config) { c.Checks = []string{"dns"} },
		"hash":        func(c *Config) { c.HashAlgorithms = []string{"crc32"} },
		"fuzzy":       func(c *Config) { c.FuzzyAlgorithms = []string{"ssdeep"} },
		"risk":        func(c *Config) { c.MinRisk = "severe" },
		"log level":   func(c *Config) { c.LogLevel = "loud" },
		"log format":  func(c *Config) { c.LogFormat = "xml" },
		"concurrency": func(c *Config) { c.Concurrency = 0 },
		"entry size":  func(c *Config) { c.MaxEntrySize = 0 },
		"rate":        func(c *Config) { c.EntriesPerSecond = -1 },
		"extensions":  func(c *Config) { c.ArchiveExtensions = nil },
		"stall":       func(c *Config) { c.StallTimeout = -time.Second },
		"otel":        func(c *Config) { c.OtelEndpoint = "collector:4318" },
		"sarif uri":   func(c *Config) { c.SarifInformationURI = "docs/jarsentry" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestSarifInformationURIFlag(t *testing.T) {
	cfg, err := Load(newFlagSet(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SarifInformationURI != "" {
		t.Fatalf("expected no SARIF information URI by default, got %q", cfg.SarifInformationURI)
	}
	cfg, err = Load(newFlagSet(t, "--sarif-info-uri", "https://security.example.test/jarsentry"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SarifInformationURI != "https://security.example.test/jarsentry" {
		t.Fatalf("unexpected SARIF information URI %q", cfg.SarifInformationURI)
	}
}
