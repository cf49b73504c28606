package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_NoWindowIsEmpty(t *testing.T) {
	text := strings.Repeat("word ", 500)
	windows := Split(text, 1000, 200)
	require.NotEmpty(t, windows)
	for _, w := range windows {
		assert.NotEmpty(t, w.Text)
	}
}

func TestSplit_RespectsMaxLength(t *testing.T) {
	text := strings.Repeat("a", 5000)
	windows := Split(text, 1000, 200)
	for _, w := range windows {
		assert.LessOrEqual(t, len(w.Text), 1250)
	}
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	para1 := strings.Repeat("alpha beta gamma. ", 40)
	para2 := strings.Repeat("delta epsilon zeta. ", 40)
	text := para1 + "\n\n" + para2

	windows := Split(text, len(para1)+10, 20)
	require.NotEmpty(t, windows)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(windows[0].Text), "."))
}

func TestReconstruct_MatchesOriginal(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 100)
	windows := Split(text, 300, 50)
	got := Reconstruct(windows)
	assert.Equal(t, normalizeWhitespace(text), normalizeWhitespace(got))
}

func TestSplit_EmptyInput(t *testing.T) {
	assert.Empty(t, Split("", 1000, 200))
}

func TestSplit_ShortTextSingleWindow(t *testing.T) {
	windows := Split("hello world", 1000, 200)
	require.Len(t, windows, 1)
	assert.Equal(t, "hello world", windows[0].Text)
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
