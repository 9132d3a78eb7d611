package idservice

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDocumentID_HasPrefix(t *testing.T) {
	id := NewDocumentID()
	assert.True(t, strings.HasPrefix(id, "doc-"))
}

func TestNewChunkID_EncodesDocumentAndIndex(t *testing.T) {
	id := NewChunkID("doc-abc", 3)
	assert.True(t, strings.HasPrefix(id, "chunk-doc-abc-3-"))
	parts := strings.Split(id, "-")
	assert.Len(t, parts[len(parts)-1], 8)
}

func TestNewConceptID_IsSlugBased(t *testing.T) {
	id := NewConceptID("llm", "GraphRAG Systems")
	assert.True(t, strings.HasPrefix(id, "concept-llm-graphrag-systems-"))
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"GraphRAG":          "graphrag",
		"Neural Networks!!": "neural-networks",
		"  spaced out  ":    "spaced-out",
		"a---b":              "a-b",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestNewChunkID_Unique(t *testing.T) {
	a := NewChunkID("doc-x", 0)
	b := NewChunkID("doc-x", 0)
	assert.NotEqual(t, a, b)
}
