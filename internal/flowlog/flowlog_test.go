package flowlog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiscardEmitsNothing(t *testing.T) {
	l := Discard()
	assert.False(t, l.Enabled(Paths))
	l.Path("ignored")
	l.Detail("ignored")
}

func TestLevelsGate(t *testing.T) {
	var buf bytes.Buffer
	l := New(Paths, &buf)
	l.Path("scope", "len", 2)
	l.Detail("dispatch", "verb", "do")

	out := buf.String()
	assert.Contains(t, out, "scope")
	assert.NotContains(t, out, "dispatch", "detail is gated at Paths level")
}

func TestDetailedIncludesPaths(t *testing.T) {
	var buf bytes.Buffer
	l := New(Detailed, &buf)
	l.Path("scope")
	l.Detail("dispatch")

	out := buf.String()
	assert.Contains(t, out, "scope")
	assert.Contains(t, out, "dispatch")
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.False(t, l.Enabled(Paths))
	l.Path("ignored")
}
