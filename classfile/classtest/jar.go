package classtest

import (
	"archive/zip"
	"bytes"
	"os"
	"strings"
)

// Entry is one archive member. Names ending in "/" become directories.
type Entry struct {
	Name string
	Data []byte
}

// Manifest renders a MANIFEST.MF entry from key/value pairs.
func Manifest(pairs ...string) Entry {
	var b strings.Builder
	b.WriteString("Manifest-Version: 1.0\r\n")
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(pairs[i])
		b.WriteString(": ")
		b.WriteString(pairs[i+1])
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return Entry{Name: "META-INF/MANIFEST.MF", Data: []byte(b.String())}
}

// ClassEntry places a built class at its conventional entry path.
func ClassEntry(b *ClassBuilder) Entry {
	return Entry{Name: b.name + ".class", Data: b.Bytes()}
}

func BuildJar(entries ...Entry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			return nil, err
		}
		if strings.HasSuffix(e.Name, "/") {
			continue
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func WriteJar(path string, entries ...Entry) error {
	data, err := BuildJar(entries...)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
