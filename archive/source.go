package archive

import (
	"io"
	"os"

	"golang.org/x/exp/mmap"
)

var openMmapReader = mmap.Open

type readerAtCloser interface {
	io.ReaderAt
	io.Closer
}

// openSource maps archives of at least mmapMinSize bytes and falls back to
// plain file reads otherwise or when mapping fails.
func openSource(path string, size, mmapMinSize int64) (readerAtCloser, error) {
	if mmapMinSize > 0 && size >= mmapMinSize {
		r, err := openMmapReader(path)
		if err == nil {
			return r, nil
		}
	}
	return os.Open(path)
}

// readHead returns up to n leading bytes for content sniffing.
func readHead(r io.ReaderAt, size int64, n int) []byte {
	if size < int64(n) {
		n = int(size)
	}
	buf := make([]byte, n)
	read, _ := r.ReadAt(buf, 0)
	return buf[:read]
}
