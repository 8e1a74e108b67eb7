package fuzzy

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"jarsentry/logger"
)

func TestTLSHRegistered(t *testing.T) {
	h, ok := Lookup("TLSH")
	if !ok {
		t.Fatal("expected tlsh to be registered")
	}
	if h.Name() != "tlsh" {
		t.Fatalf("unexpected name %q", h.Name())
	}
	if got := Available(); len(got) != 1 || got[0] != "tlsh" {
		t.Fatalf("unexpected registry contents: %v", got)
	}
}

func TestFileDigests(t *testing.T) {
	logger.Init("error")
	data := make([]byte, 4096)
	rand.New(rand.NewSource(7)).Read(data)
	path := filepath.Join(t.TempDir(), "app.jar")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	digests := FileDigests(path, []string{"tlsh", "ssdeep"})
	if digests["tlsh"] == "" {
		t.Fatal("expected a tlsh digest")
	}
	if _, ok := digests["ssdeep"]; ok {
		t.Fatal("unknown hashers must be skipped")
	}

	fromBytes, err := TLSHHasher{}.Hash(data)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if fromBytes != digests["tlsh"] {
		t.Fatalf("byte and file digests differ: %s vs %s", fromBytes, digests["tlsh"])
	}
}

func TestFileDigestsSkipsTinyInput(t *testing.T) {
	logger.Init("error")
	path := filepath.Join(t.TempDir(), "tiny.jar")
	if err := os.WriteFile(path, []byte("PK"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if digests := FileDigests(path, []string{"tlsh"}); len(digests) != 0 {
		t.Fatalf("expected no digest for tiny input, got %v", digests)
	}
}
