package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"jarsentry/archive"
	"jarsentry/config"
	"jarsentry/output"
	"jarsentry/scanner"
)

type archiveInfo struct {
	Archive       output.ArchiveInfo `json:"archive"`
	Summary       archive.Summary    `json:"summary"`
	EntryPoints   []string           `json:"entry_points"`
	FailedEntries []string           `json:"failed_entries"`
}

func runInfo(ctx context.Context, cfg *config.Config, path string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	session := scanner.NewSession(cfg.SessionOptions())
	summary, err := session.LoadArchive(ctx, path)
	if err != nil {
		return err
	}
	info := archiveInfo{
		Archive:       output.DescribeArchive(path, cfg.HashAlgorithms, cfg.FuzzyAlgorithms),
		Summary:       summary,
		EntryPoints:   session.EntryPoints(),
		FailedEntries: session.Contents().FailedEntries(),
	}
	if info.EntryPoints == nil {
		info.EntryPoints = []string{}
	}
	if cfg.OutputFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	return writeInfoText(out, info)
}

func writeInfoText(out io.Writer, info archiveInfo) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Archive:\t%s\n", info.Archive.Path)
	fmt.Fprintf(tw, "Size:\t%d bytes\n", info.Archive.Size)
	for _, alg := range sortedKeys(info.Archive.Hashes) {
		fmt.Fprintf(tw, "%s:\t%s\n", alg, info.Archive.Hashes[alg])
	}
	for _, alg := range sortedKeys(info.Archive.FuzzyHashes) {
		fmt.Fprintf(tw, "%s:\t%s\n", alg, info.Archive.FuzzyHashes[alg])
	}
	fmt.Fprintf(tw, "Classes:\t%d\n", info.Summary.TotalClasses)
	fmt.Fprintf(tw, "Resources:\t%d\n", info.Summary.TotalResources)
	fmt.Fprintf(tw, "Failed entries:\t%d\n", info.Summary.TotalFailed)
	fmt.Fprintf(tw, "Manifest entries:\t%d\n", info.Summary.ManifestEntries)

	fmt.Fprintln(tw, "\nEntry points:")
	if len(info.EntryPoints) == 0 {
		fmt.Fprintln(tw, "  (none)")
	}
	for _, ep := range info.EntryPoints {
		fmt.Fprintf(tw, "  %s\n", ep)
	}

	fmt.Fprintln(tw, "\nPackages:")
	for _, name := range sortedCounts(info.Summary.Packages) {
		fmt.Fprintf(tw, "  %s\t%d\n", name, info.Summary.Packages[name])
	}
	if len(info.Summary.ResourceTypes) > 0 {
		fmt.Fprintln(tw, "\nResource types:")
		for _, name := range sortedCounts(info.Summary.ResourceTypes) {
			fmt.Fprintf(tw, "  %s\t%d\n", name, info.Summary.ResourceTypes[name])
		}
	}
	if len(info.FailedEntries) > 0 {
		fmt.Fprintln(tw, "\nFailed entries:")
		for _, name := range info.FailedEntries {
			fmt.Fprintf(tw, "  %s\n", name)
		}
	}
	return tw.Flush()
}

// sortedCounts orders keys by count descending, then name.
func sortedCounts(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
