package hasher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jarsentry/logger"
)

func TestSumKnownDigests(t *testing.T) {
	logger.Init("error")
	hashes, err := Sum(strings.NewReader("hello world"), []string{"md5", "SHA1", "sha256", "sha256", "unknown"})
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if hashes["md5"] != "5eb63bbbe01eeed093cb22bb8f5acdc3" {
		t.Errorf("md5 mismatch: %s", hashes["md5"])
	}
	if hashes["sha1"] != "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed" {
		t.Errorf("sha1 mismatch: %s", hashes["sha1"])
	}
	if hashes["sha256"] != "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9" {
		t.Errorf("sha256 mismatch: %s", hashes["sha256"])
	}
	if _, ok := hashes["unknown"]; ok {
		t.Errorf("unexpected hash for unknown algorithm")
	}
	if len(hashes) != 3 {
		t.Errorf("expected 3 digests, got %d", len(hashes))
	}
}

func TestFileBlake3(t *testing.T) {
	logger.Init("error")
	path := filepath.Join(t.TempDir(), "app.jar")
	if err := os.WriteFile(path, []byte("hello world"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	hashes := File(path, []string{"blake3"})
	if len(hashes["blake3"]) != 64 {
		t.Fatalf("expected 32-byte blake3 digest, got %q", hashes["blake3"])
	}
	again := File(path, []string{"blake3"})
	if again["blake3"] != hashes["blake3"] {
		t.Fatal("blake3 digest is not stable")
	}
}

func TestFileMissing(t *testing.T) {
	logger.Init("error")
	hashes := File(filepath.Join(t.TempDir(), "missing.jar"), []string{"md5"})
	if len(hashes) != 0 {
		t.Fatalf("expected no digests for a missing file, got %v", hashes)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate([]string{"md5", "blake3"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate([]string{"crc32"}); err == nil {
		t.Fatal("expected crc32 to be rejected")
	}
}
