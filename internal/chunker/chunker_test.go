package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_EmptyText(t *testing.T) {
	units, err := New().Split("", 100, 10)
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestSplit_InvalidPreconditions(t *testing.T) {
	c := New()
	_, err := c.Split("hello", 0, 0)
	assert.Error(t, err)
	_, err = c.Split("hello", 10, 10)
	assert.Error(t, err)
	_, err = c.Split("hello", 10, -1)
	assert.Error(t, err)
}

func TestSplit_CollapsesWhitespace(t *testing.T) {
	units, err := New().Split("Hello   world.\n\nNext  sentence.", 100, 10)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "Hello world. Next sentence.", units[0].Text)
}

func TestSplit_NoChunkExceedsSize(t *testing.T) {
	text := "GraphRAG combines vectors and graphs. GraphRAG is a system. It scales across many documents and many concepts reliably."
	units, err := New().Split(text, 40, 10)
	require.NoError(t, err)
	for _, u := range units {
		assert.LessOrEqual(t, len(u.Text), 40, u.Text)
	}
	assert.True(t, len(units) > 1)
}

func TestSplit_IndexesAreMonotone(t *testing.T) {
	text := "One. Two. Three. Four. Five."
	units, err := New().Split(text, 8, 2)
	require.NoError(t, err)
	for i, u := range units {
		assert.Equal(t, i, u.Index)
	}
}

func TestSplit_BoundaryChunkSizeOne(t *testing.T) {
	units, err := New().Split("a b c", 1, 0)
	require.NoError(t, err)
	for _, u := range units {
		assert.LessOrEqual(t, len(u.Text), 1)
	}
}

func TestSplit_CoversOriginalText(t *testing.T) {
	text := "GraphRAG combines vectors and graphs. GraphRAG is a system."
	units, err := New().Split(text, 30, 5)
	require.NoError(t, err)
	joined := strings.Join(unitTexts(units), " ")
	for _, word := range strings.Fields(text) {
		assert.Contains(t, joined, strings.Trim(word, ".!?"))
	}
}

func unitTexts(units []Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Text
	}
	return out
}
