//go:build !jsonv2

package output

import (
	"encoding/json"
	"io"
)

func jsonMarshal(value any) ([]byte, error) {
	return json.Marshal(value)
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
