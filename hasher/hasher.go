package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"lukechampine.com/blake3"

	"jarsentry/logger"
)

const copyBufferSize = 128 * 1024

var copyBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, copyBufferSize)
		return &buf
	},
}

var constructors = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"blake3": func() hash.Hash { return blake3.New(32, nil) },
}

// Supported lists the accepted algorithm names in sorted order.
func Supported() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func IsSupported(name string) bool {
	_, ok := constructors[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Sum digests r with every requested algorithm in a single pass. Unknown
// and repeated names are skipped.
func Sum(r io.Reader, algorithms []string) (map[string]string, error) {
	type entry struct {
		name string
		h    hash.Hash
	}
	var hashers []entry
	writers := make([]io.Writer, 0, len(algorithms))
	seen := make(map[string]struct{}, len(algorithms))
	for _, algo := range algorithms {
		algo = strings.ToLower(strings.TrimSpace(algo))
		if _, ok := seen[algo]; ok {
			continue
		}
		newHash, ok := constructors[algo]
		if !ok {
			logger.Warnf("Unsupported hash algorithm: %s", algo)
			continue
		}
		seen[algo] = struct{}{}
		h := newHash()
		hashers = append(hashers, entry{name: algo, h: h})
		writers = append(writers, h)
	}

	out := make(map[string]string, len(hashers))
	if len(hashers) == 0 {
		return out, nil
	}

	bufPtr := copyBufferPool.Get().(*[]byte)
	defer copyBufferPool.Put(bufPtr)
	if _, err := io.CopyBuffer(io.MultiWriter(writers...), r, *bufPtr); err != nil {
		return out, err
	}
	for _, e := range hashers {
		out[e.name] = hex.EncodeToString(e.h.Sum(nil))
	}
	return out, nil
}

// File digests the archive at path. Failures are logged and yield an
// empty map.
func File(path string, algorithms []string) map[string]string {
	f, err := os.Open(path)
	if err != nil {
		logger.Warnf("Failed to open %s for hashing: %v", path, err)
		return map[string]string{}
	}
	defer f.Close()

	hashes, err := Sum(f, algorithms)
	if err != nil {
		logger.Warnf("Failed to hash %s: %v", path, err)
		return map[string]string{}
	}
	return hashes
}

// Validate rejects algorithm names that Sum would skip.
func Validate(algorithms []string) error {
	for _, algo := range algorithms {
		if !IsSupported(algo) {
			return fmt.Errorf("unsupported hash algorithm %q (supported: %s)", algo, strings.Join(Supported(), ", "))
		}
	}
	return nil
}
