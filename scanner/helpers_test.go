package scanner

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"jarsentry/classfile"
	"jarsentry/classfile/classtest"
	"jarsentry/logger"
	"jarsentry/threat"
)

func init() {
	logger.Init("error")
}

func decode(t *testing.T, b *classtest.ClassBuilder) *classfile.Class {
	t.Helper()
	class, err := classfile.Decode(b.Bytes())
	require.NoError(t, err)
	return class
}

func runCheck(t *testing.T, kind CheckerKind, b *classtest.ClassBuilder) []threat.Finding {
	t.Helper()
	checker, err := NewChecker(kind)
	require.NoError(t, err)
	return scanClass(checker, decode(t, b))
}

// method starts a public void method on a fresh class.
func method(class string) *classtest.MethodBuilder {
	return classtest.NewClass(class).Method(classfile.AccPublic, "run", "()V")
}

func summaries(findings []threat.Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Summary)
	}
	return out
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
