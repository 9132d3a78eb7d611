package graphstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphrag/internal/model"
)

func TestUpsertConcept_SameNormalizedNameSharesID(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()

	c1 := model.Concept{ID: "concept-llm-graphrag-aaaaaaaa", Name: "GraphRAG", NormalizedName: "graphrag", Type: "Concept"}
	require.NoError(t, g.UpsertConcept(ctx, &c1))

	c2 := model.Concept{ID: "concept-keyword_text-graphrag-bbbbbbbb", Name: "GraphRAG", NormalizedName: "graphrag", Type: "Concept"}
	require.NoError(t, g.UpsertConcept(ctx, &c2))

	assert.Equal(t, c1.ID, c2.ID, "second observer must adopt the existing id")

	concepts, err := g.ListConcepts(ctx)
	require.NoError(t, err)
	assert.Len(t, concepts, 1)
}

func TestUpsertConcept_SanitizesInvalidType(t *testing.T) {
	g := NewMemoryGraph()
	c := model.Concept{ID: "concept-llm-x-aaaaaaaa", Name: "X", NormalizedName: "x", Type: "123-bad"}
	require.NoError(t, g.UpsertConcept(context.Background(), &c))
	assert.Equal(t, "Concept", c.Type)
}

func TestUpsertEdge_StrengthIsMonotoneMax(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()

	require.NoError(t, g.UpsertEdge(ctx, model.Relationship{SourceID: "A", TargetID: "B", Kind: model.KindRelatedTo, Strength: 0.3}))
	require.NoError(t, g.UpsertEdge(ctx, model.Relationship{SourceID: "A", TargetID: "B", Kind: model.KindRelatedTo, Strength: 0.9}))

	edges, err := g.RelatedTo(ctx, "A")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, 0.9, edges[0].Strength)

	// Re-asserting a lower strength must not regress it.
	require.NoError(t, g.UpsertEdge(ctx, model.Relationship{SourceID: "A", TargetID: "B", Kind: model.KindRelatedTo, Strength: 0.1}))
	edges, err = g.RelatedTo(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 0.9, edges[0].Strength)
}

func TestRelatedTo_DefaultsMissingStrength(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()
	require.NoError(t, g.UpsertEdge(ctx, model.Relationship{SourceID: "A", TargetID: "B", Kind: model.KindRelatedTo}))
	edges, err := g.RelatedTo(ctx, "A")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, 0.5, edges[0].Strength)
}

func TestDocumentHash_UniqueLookup(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()
	doc := model.Document{ID: "doc-1", ContentHash: "abc123"}
	require.NoError(t, g.CreateDocument(ctx, doc))

	found, ok, err := g.FindDocumentByHash(ctx, "abc123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "doc-1", found.ID)

	_, ok, err = g.FindDocumentByHash(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLinkHasChunk_RequiresExistingDocument(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()
	err := g.LinkHasChunk(ctx, "doc-missing", "chunk-1")
	assert.Error(t, err)
}

func TestDocumentsMentioningConcept_Dedupes(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()

	doc := model.Document{ID: "doc-1", Title: "GR"}
	require.NoError(t, g.CreateDocument(ctx, doc))

	concept := model.Concept{ID: "concept-llm-gr-aaaaaaaa", Name: "GraphRAG", NormalizedName: "graphrag"}
	require.NoError(t, g.UpsertConcept(ctx, &concept))

	require.NoError(t, g.LinkMentionsConcept(ctx, "doc-1", concept.ID))
	require.NoError(t, g.CreateChunk(ctx, model.Chunk{ID: "chunk-1", DocumentID: "doc-1"}))
	require.NoError(t, g.LinkMentionsConcept(ctx, "chunk-1", concept.ID))

	docs, err := g.DocumentsMentioningConcept(ctx, "GraphRAG", 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-1", docs[0].ID)
}
