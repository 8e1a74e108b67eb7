package utils

import "testing"

func TestShouldInclude(t *testing.T) {
	matcher := NewPatternMatcher(nil, nil)
	if !matcher.ShouldInclude("com/x/Main.class") {
		t.Fatal("expected include by default")
	}
	if !matcher.Empty() {
		t.Fatal("matcher without patterns should be empty")
	}
	matcher = NewPatternMatcher([]string{"*.class"}, nil)
	if matcher.ShouldInclude("META-INF/MANIFEST.MF") {
		t.Fatal("should not include unmatched include pattern")
	}
	if !matcher.ShouldInclude("com/x/Main.class") {
		t.Fatal("should include matching include pattern on base name")
	}
	matcher = NewPatternMatcher(nil, []string{"com/vendor/*"})
	if matcher.ShouldInclude("com/vendor/Lib.class") {
		t.Fatal("should exclude matching full-path glob")
	}
	if !matcher.ShouldInclude("com/x/Main.class") {
		t.Fatal("should include when exclude does not match")
	}
	matcher = NewPatternMatcher([]string{"^org/.*Shade.*\\.class$"}, nil)
	if !matcher.ShouldInclude("org/a/ShadedUtil.class") {
		t.Fatal("should match regex include pattern")
	}
}
