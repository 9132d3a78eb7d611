package dedupe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphrag/internal/graphstore"
	"graphrag/internal/model"
)

func TestByPath_ExactAndCaseInsensitive(t *testing.T) {
	g := graphstore.NewMemoryGraph()
	ctx := context.Background()
	require.NoError(t, g.CreateDocument(ctx, model.Document{ID: "doc-1", URL: "/books/Graph.pdf"}))

	d := New(g, nil)

	isDup, id := d.ByPath(ctx, "/books/Graph.pdf")
	assert.True(t, isDup)
	assert.Equal(t, "doc-1", id)

	isDup, id = d.ByPath(ctx, "/books/graph.pdf")
	assert.True(t, isDup)
	assert.Equal(t, "doc-1", id)

	isDup, _ = d.ByPath(ctx, "/books/other.pdf")
	assert.False(t, isDup)
}

func TestByMetadata_ExactTitleAndAuthor(t *testing.T) {
	g := graphstore.NewMemoryGraph()
	ctx := context.Background()
	require.NoError(t, g.CreateDocument(ctx, model.Document{ID: "doc-1", Title: "Graph Theory", Author: "Euler"}))

	d := New(g, nil)
	isDup, id := d.ByMetadata(ctx, Metadata{Title: "Graph Theory", Author: "Euler"})
	assert.True(t, isDup)
	assert.Equal(t, "doc-1", id)
}

func TestByMetadata_FuzzyTitleMatch(t *testing.T) {
	g := graphstore.NewMemoryGraph()
	ctx := context.Background()
	require.NoError(t, g.CreateDocument(ctx, model.Document{ID: "doc-1", Title: "Introduction to Graph Theory"}))

	d := New(g, nil)
	isDup, id := d.ByMetadata(ctx, Metadata{Title: "Introduction to Graph Theroy"})
	assert.True(t, isDup)
	assert.Equal(t, "doc-1", id)
}

func TestByMetadata_NoTitleNeverMatches(t *testing.T) {
	g := graphstore.NewMemoryGraph()
	d := New(g, nil)
	isDup, _ := d.ByMetadata(context.Background(), Metadata{})
	assert.False(t, isDup)
}

func TestByContentHash(t *testing.T) {
	g := graphstore.NewMemoryGraph()
	ctx := context.Background()
	hash := ContentHash("Some   document   text.")
	require.NoError(t, g.CreateDocument(ctx, model.Document{ID: "doc-1", ContentHash: hash}))

	d := New(g, nil)
	isDup, id := d.ByContentHash(ctx, ContentHash("Some document text."))
	assert.True(t, isDup)
	assert.Equal(t, "doc-1", id)
}

func TestContentHash_NormalizesWhitespaceAndCase(t *testing.T) {
	assert.Equal(t, ContentHash("Hello   World"), ContentHash("hello world"))
}
