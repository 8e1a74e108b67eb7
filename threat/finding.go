package threat

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Category identifies the classifier family that produced a finding.
type Category int

const (
	URL Category = iota
	Encryption
	WebConnection
	CommandExecution
)

var categoryNames = [...]string{
	"URL Detection",
	"Encryption/Decryption",
	"Web Connection",
	"Command Execution",
}

var categoryIDs = [...]string{"url", "encryption", "web-connection", "command-execution"}

func (c Category) String() string {
	if c < URL || c > CommandExecution {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// ID is a stable machine identifier, used as a rule id in reports.
func (c Category) ID() string {
	if c < URL || c > CommandExecution {
		return "unknown"
	}
	return categoryIDs[c]
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func Categories() []Category {
	return []Category{URL, Encryption, WebConnection, CommandExecution}
}

// NoLine marks a finding without source line information.
const NoLine = -1

// Finding is one reported indicator. Findings are not modified after
// creation.
type Finding struct {
	Category Category  `json:"category"`
	Risk     RiskLevel `json:"risk"`
	Class    string    `json:"class"`
	Method   string    `json:"method"`
	Summary  string    `json:"summary"`
	Details  string    `json:"details"`
	Line     int       `json:"line"`
}

func New(category Category, risk RiskLevel, class, method, summary, details string) Finding {
	return Finding{
		Category: category,
		Risk:     risk,
		Class:    class,
		Method:   method,
		Summary:  summary,
		Details:  details,
		Line:     NoLine,
	}
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s.%s: %s", f.Risk, f.Class, f.Method, f.Summary)
}

// Key hashes the identity fields (category, class, method, summary, line).
// Details and risk do not take part.
func (f Finding) Key() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(strconv.Itoa(int(f.Category)))
	for _, s := range []string{f.Class, f.Method, f.Summary} {
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(s)
	}
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(strconv.Itoa(f.Line))
	return d.Sum64()
}

// Same reports whether two findings share an identity.
func (f Finding) Same(o Finding) bool {
	return f.Category == o.Category && f.Class == o.Class && f.Method == o.Method &&
		f.Summary == o.Summary && f.Line == o.Line
}

// Dedupe keeps the first finding of every identity, preserving order.
func Dedupe(findings []Finding) []Finding {
	seen := make(map[uint64][]int, len(findings))
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		k := f.Key()
		dup := false
		for _, idx := range seen[k] {
			if out[idx].Same(f) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen[k] = append(seen[k], len(out))
		out = append(out, f)
	}
	return out
}

// SortForDisplay orders findings by category, risk (highest first), class,
// method, summary and line. The input slice is sorted in place.
func SortForDisplay(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Risk != b.Risk {
			return a.Risk > b.Risk
		}
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		if a.Summary != b.Summary {
			return a.Summary < b.Summary
		}
		return a.Line < b.Line
	})
}

// FilterMinRisk drops findings below min.
func FilterMinRisk(findings []Finding, min RiskLevel) []Finding {
	if min <= Low {
		return findings
	}
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if f.Risk >= min {
			out = append(out, f)
		}
	}
	return out
}

// CountByRisk tallies findings per risk label.
func CountByRisk(findings []Finding) map[string]int {
	counts := make(map[string]int, 4)
	for _, f := range findings {
		counts[f.Risk.String()]++
	}
	return counts
}
