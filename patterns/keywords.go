package patterns

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// Small tables are scanned directly; larger ones go through an
// Aho-Corasick automaton first and are confirmed with strings.Contains.
const ahoMinTerms = 8

// KeywordSet is an ordered list of substrings. Earlier terms take
// precedence when several occur in the same input. Matching is
// case-insensitive.
type KeywordSet struct {
	terms   []string
	lowered []string
	matcher *ahocorasick.Matcher
}

func NewKeywordSet(terms ...string) *KeywordSet {
	ks := &KeywordSet{
		terms:   append([]string(nil), terms...),
		lowered: make([]string, len(terms)),
	}
	for i, t := range terms {
		ks.lowered[i] = strings.ToLower(t)
	}
	if len(terms) >= ahoMinTerms {
		ks.matcher = ahocorasick.NewStringMatcher(ks.lowered)
	}
	return ks
}

// First returns the highest-precedence term contained in s.
func (ks *KeywordSet) First(s string) (string, bool) {
	lower := strings.ToLower(s)
	if ks.matcher == nil {
		for i, t := range ks.lowered {
			if t != "" && strings.Contains(lower, t) {
				return ks.terms[i], true
			}
		}
		return "", false
	}

	hits := ks.matcher.MatchThreadSafe([]byte(lower))
	if len(hits) == 0 {
		return "", false
	}
	best := -1
	for _, idx := range hits {
		if idx < 0 || idx >= len(ks.lowered) || ks.lowered[idx] == "" {
			continue
		}
		if best != -1 && idx >= best {
			continue
		}
		if strings.Contains(lower, ks.lowered[idx]) {
			best = idx
		}
	}
	if best == -1 {
		return "", false
	}
	return ks.terms[best], true
}

// ContainsAny reports whether any term occurs in s.
func (ks *KeywordSet) ContainsAny(s string) bool {
	_, ok := ks.First(s)
	return ok
}

// Set is an exact-match membership table.
type Set map[string]struct{}

func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}
