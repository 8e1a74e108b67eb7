package utils

import (
	"path"
	"regexp"
)

// PatternMatcher filters archive entry paths by include and exclude
// patterns. Each pattern is tried as a glob against the base name and the
// full path, and as a regular expression against the full path.
type PatternMatcher struct {
	includeGlobs []string
	includeRegex []*regexp.Regexp
	excludeGlobs []string
	excludeRegex []*regexp.Regexp
}

func NewPatternMatcher(includePatterns, excludePatterns []string) *PatternMatcher {
	return &PatternMatcher{
		includeGlobs: append([]string(nil), includePatterns...),
		includeRegex: compileRegex(includePatterns),
		excludeGlobs: append([]string(nil), excludePatterns...),
		excludeRegex: compileRegex(excludePatterns),
	}
}

func (m *PatternMatcher) Empty() bool {
	return m == nil || (len(m.includeGlobs) == 0 && len(m.excludeGlobs) == 0)
}

func (m *PatternMatcher) ShouldInclude(entry string) bool {
	if m == nil {
		return true
	}
	if (len(m.includeGlobs) > 0 || len(m.includeRegex) > 0) && !m.matches(entry, m.includeGlobs, m.includeRegex) {
		return false
	}
	if (len(m.excludeGlobs) > 0 || len(m.excludeRegex) > 0) && m.matches(entry, m.excludeGlobs, m.excludeRegex) {
		return false
	}
	return true
}

func (m *PatternMatcher) matches(entry string, globs []string, regexes []*regexp.Regexp) bool {
	for _, pattern := range globs {
		if matched, _ := path.Match(pattern, path.Base(entry)); matched {
			return true
		}
		if matched, _ := path.Match(pattern, entry); matched {
			return true
		}
	}
	for _, re := range regexes {
		if re.MatchString(entry) {
			return true
		}
	}
	return false
}

func compileRegex(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		if re, err := regexp.Compile(pattern); err == nil {
			compiled = append(compiled, re)
		}
	}
	return compiled
}
