package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"jarsentry/threat"
)

var riskOrder = []threat.RiskLevel{threat.Critical, threat.High, threat.Medium, threat.Low}

func writeText(out io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	p := func(format string, args ...any) {
		fmt.Fprintf(tw, format, args...)
	}

	p("JAR Security Analysis Report\n")
	p("Archive:\t%s\n", r.Archive.Path)
	p("Size:\t%d bytes\n", r.Archive.Size)
	for _, alg := range sortedKeys(r.Archive.Hashes) {
		p("%s:\t%s\n", strings.ToUpper(alg), r.Archive.Hashes[alg])
	}
	for _, alg := range sortedKeys(r.Archive.FuzzyHashes) {
		p("%s:\t%s\n", strings.ToUpper(alg), r.Archive.FuzzyHashes[alg])
	}
	p("Scan ID:\t%s\n", r.ScanID)
	p("Classes:\t%d\n", r.Summary.TotalClasses)
	p("Resources:\t%d\n", r.Summary.TotalResources)
	if len(r.FailedEntries) > 0 {
		p("Failed entries:\t%d\n", len(r.FailedEntries))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.EntryPoints) > 0 {
		p("\nEntry points:\n")
		for _, ep := range r.EntryPoints {
			p("  %s\n", ep)
		}
	}
	for _, ce := range r.CheckErrors {
		p("\nError in %s: %s\n", ce.Check, ce.Error)
	}

	counts := make([]string, 0, len(riskOrder))
	for _, level := range riskOrder {
		counts = append(counts, fmt.Sprintf("%s: %d", level, r.RiskCounts[level.String()]))
	}
	p("\nFound %d threats (%s)\n", len(r.Findings), strings.Join(counts, ", "))

	current := threat.Category(-1)
	for _, f := range r.Findings {
		if f.Category != current {
			if err := tw.Flush(); err != nil {
				return err
			}
			current = f.Category
			p("\n== %s ==\n", current)
		}
		p("[%s]\t%s.%s\t%s\n", f.Risk, f.Class, f.Method, f.Summary)
		if f.Details != "" {
			for _, line := range strings.Split(f.Details, "\n") {
				p("\t\t  %s\n", line)
			}
		}
	}
	return tw.Flush()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
