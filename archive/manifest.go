package archive

import (
	"bufio"
	"bytes"
	"strings"

	"jarsentry/logger"
)

const manifestPath = "META-INF/MANIFEST.MF"

func isManifest(name string) bool {
	return strings.EqualFold(name, manifestPath)
}

// parseManifest reads the main section of a manifest. Continuation lines
// start with a single space. Lines that are not "Name: value" are skipped.
func parseManifest(data []byte) map[string]string {
	attrs := make(map[string]string)
	var key string
	var value strings.Builder

	flush := func() {
		if key != "" {
			attrs[key] = strings.TrimSpace(value.String())
		}
		key = ""
		value.Reset()
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			// End of the main section.
			break
		}
		if strings.HasPrefix(line, " ") {
			if key != "" {
				value.WriteString(line[1:])
			}
			continue
		}
		flush()
		name, val, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			logger.Warnf("Skipping malformed manifest line %q", line)
			continue
		}
		key = strings.TrimSpace(name)
		value.WriteString(strings.TrimPrefix(val, " "))
	}
	flush()
	if err := sc.Err(); err != nil {
		logger.Warnf("Manifest read stopped early: %v", err)
	}
	return attrs
}
