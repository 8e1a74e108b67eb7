package archive

import (
	"sort"
	"unicode/utf8"

	"github.com/h2non/filetype"

	"jarsentry/classfile"
	"jarsentry/utils"
)

// Contents is everything loaded from one archive. It belongs to a single
// session and is not shared between loads.
type Contents struct {
	Path      string
	Size      int64
	Resources map[string][]byte
	Classes   []*classfile.Class
	// ClassEntries maps a class name to the entry it was decoded from.
	ClassEntries map[string]string
	Manifest     map[string]string
	Failed       map[string]struct{}
}

func NewContents() *Contents {
	c := &Contents{}
	c.Reset()
	return c
}

// Reset drops every collection.
func (c *Contents) Reset() {
	c.Path = ""
	c.Size = 0
	c.Resources = make(map[string][]byte)
	c.Classes = nil
	c.ClassEntries = make(map[string]string)
	c.Manifest = make(map[string]string)
	c.Failed = make(map[string]struct{})
}

// FailedEntries returns the failed entry paths in sorted order.
func (c *Contents) FailedEntries() []string {
	out := make([]string, 0, len(c.Failed))
	for name := range c.Failed {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type Summary struct {
	TotalClasses    int            `json:"total_classes"`
	TotalResources  int            `json:"total_resources"`
	TotalFailed     int            `json:"total_failed"`
	ManifestEntries int            `json:"manifest_entries"`
	Packages        map[string]int `json:"packages"`
	ResourceTypes   map[string]int `json:"resource_types"`
}

func (c *Contents) Summary() Summary {
	s := Summary{
		TotalClasses:    len(c.Classes),
		TotalResources:  len(c.Resources),
		TotalFailed:     len(c.Failed),
		ManifestEntries: len(c.Manifest),
		Packages:        make(map[string]int),
		ResourceTypes:   make(map[string]int),
	}
	for _, cls := range c.Classes {
		s.Packages[utils.PackageName(cls.Name)]++
	}
	for _, data := range c.Resources {
		s.ResourceTypes[sniffType(data)]++
	}
	return s
}

// EntryPoints lists the manifest Main-Class followed by every class that
// declares public static void main(String[]).
func (c *Contents) EntryPoints() []string {
	var out []string
	if main := c.Manifest["Main-Class"]; main != "" {
		out = append(out, main)
	}
	for _, cls := range c.Classes {
		if cls.HasMainMethod() {
			out = append(out, cls.Name)
		}
	}
	return out
}

const sniffLen = 261

func sniffType(data []byte) string {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if len(head) >= 4 && head[0] == 0xCA && head[1] == 0xFE && head[2] == 0xBA && head[3] == 0xBE {
		return "application/java-vm"
	}
	kind, err := filetype.Match(head)
	if err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if len(head) > 0 && utf8.Valid(head) {
		return "text/plain"
	}
	return "application/octet-stream"
}
