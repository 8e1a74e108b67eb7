package fuzzy

import (
	"sort"
	"strings"

	"jarsentry/logger"
)

// Hasher is a similarity digest over raw bytes.
type Hasher interface {
	Name() string
	Hash(data []byte) (string, error)
	HashFile(path string) (string, error)
}

var registry = map[string]Hasher{}

func Register(hasher Hasher) {
	if hasher == nil {
		return
	}
	registry[strings.ToLower(hasher.Name())] = hasher
}

func Lookup(name string) (Hasher, bool) {
	hasher, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return hasher, ok
}

// Available returns the registered names in sorted order.
func Available() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FileDigests runs each named hasher over path. Hashers that fail, for
// example on input too small to fingerprint, are left out.
func FileDigests(path string, names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		h, ok := Lookup(name)
		if !ok {
			logger.Warnf("Unknown fuzzy hash algorithm: %s", name)
			continue
		}
		digest, err := h.HashFile(path)
		if err != nil {
			logger.Debugf("Fuzzy hash %s skipped for %s: %v", h.Name(), path, err)
			continue
		}
		out[h.Name()] = digest
	}
	return out
}
