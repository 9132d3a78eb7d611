package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphrag/internal/graphstore"
	"graphrag/internal/llm"
	"graphrag/internal/model"
	"graphrag/internal/vectorstore"
)

type fakeEmbedProvider struct {
	vector []float32
}

func (f *fakeEmbedProvider) Name() string { return "fake" }
func (f *fakeEmbedProvider) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	return "", nil
}
func (f *fakeEmbedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func newTestSearcher(t *testing.T) (*Searcher, *graphstore.MemoryGraph, *vectorstore.MemoryStore) {
	t.Helper()
	graph := graphstore.NewMemoryGraph()
	vector := vectorstore.NewMemoryStore()
	gateway := &llm.Gateway{Primary: &fakeEmbedProvider{vector: []float32{1, 0, 0}}}
	return New(graph, vector, gateway), graph, vector
}

func TestHybridSearch_SeedsFromConceptIDMetadata(t *testing.T) {
	ctx := context.Background()
	s, graph, vector := newTestSearcher(t)

	a := model.Concept{Name: "Alpha", NormalizedName: "alpha"}
	require.NoError(t, graph.UpsertConcept(ctx, &a))
	b := model.Concept{Name: "Beta", NormalizedName: "beta"}
	require.NoError(t, graph.UpsertConcept(ctx, &b))
	require.NoError(t, graph.UpsertEdge(ctx, model.Relationship{SourceID: a.ID, TargetID: b.ID, Kind: "RELATED_TO", Strength: 0.7}))

	require.NoError(t, vector.Upsert(ctx, "chunk-1", "alpha text", []float32{1, 0, 0}, map[string]string{"concept_id": a.ID}))

	results, err := s.HybridSearch(ctx, "alpha", 5, 1, false)
	require.NoError(t, err)
	require.Len(t, results.VectorResults, 1)
	require.Len(t, results.GraphResults, 1)
	assert.Equal(t, b.ID, results.GraphResults[0].ID)
	assert.Equal(t, "Beta", results.GraphResults[0].Name)
	assert.InDelta(t, 0.7, results.GraphResults[0].RelevanceScore, 1e-9)
}

func TestHybridSearch_SeedsFromConceptIDsListMetadata(t *testing.T) {
	ctx := context.Background()
	s, graph, vector := newTestSearcher(t)

	a := model.Concept{Name: "Alpha", NormalizedName: "alpha"}
	require.NoError(t, graph.UpsertConcept(ctx, &a))
	b := model.Concept{Name: "Beta", NormalizedName: "beta"}
	require.NoError(t, graph.UpsertConcept(ctx, &b))
	require.NoError(t, graph.UpsertEdge(ctx, model.Relationship{SourceID: a.ID, TargetID: b.ID, Kind: "RELATED_TO", Strength: 0.4}))

	require.NoError(t, vector.Upsert(ctx, "chunk-1", "alpha and beta text", []float32{1, 0, 0},
		map[string]string{"concept_ids": vectorstore.JoinList([]string{a.ID})}))

	results, err := s.HybridSearch(ctx, "query", 5, 2, false)
	require.NoError(t, err)
	require.Len(t, results.GraphResults, 1)
	assert.Equal(t, b.ID, results.GraphResults[0].ID)
}

func TestHybridSearch_MaxHopsZeroYieldsNoTraversal(t *testing.T) {
	ctx := context.Background()
	s, graph, vector := newTestSearcher(t)

	a := model.Concept{Name: "Alpha", NormalizedName: "alpha"}
	require.NoError(t, graph.UpsertConcept(ctx, &a))
	b := model.Concept{Name: "Beta", NormalizedName: "beta"}
	require.NoError(t, graph.UpsertConcept(ctx, &b))
	require.NoError(t, graph.UpsertEdge(ctx, model.Relationship{SourceID: a.ID, TargetID: b.ID, Kind: "RELATED_TO", Strength: 0.9}))
	require.NoError(t, vector.Upsert(ctx, "chunk-1", "alpha text", []float32{1, 0, 0}, map[string]string{"concept_id": a.ID}))

	results, err := s.HybridSearch(ctx, "alpha", 5, 0, false)
	require.NoError(t, err)
	assert.Empty(t, results.GraphResults)
}

func TestHybridSearch_AccumulatesBestScorePerDestination(t *testing.T) {
	ctx := context.Background()
	s, graph, vector := newTestSearcher(t)

	a := model.Concept{Name: "A", NormalizedName: "a"}
	require.NoError(t, graph.UpsertConcept(ctx, &a))
	b := model.Concept{Name: "B", NormalizedName: "b"}
	require.NoError(t, graph.UpsertConcept(ctx, &b))
	c := model.Concept{Name: "C", NormalizedName: "c"}
	require.NoError(t, graph.UpsertConcept(ctx, &c))

	// Two paths A->C: direct (0.2) and via B (0.5+0.5=1.0). Best must win.
	require.NoError(t, graph.UpsertEdge(ctx, model.Relationship{SourceID: a.ID, TargetID: c.ID, Kind: "RELATED_TO", Strength: 0.2}))
	require.NoError(t, graph.UpsertEdge(ctx, model.Relationship{SourceID: a.ID, TargetID: b.ID, Kind: "RELATED_TO", Strength: 0.5}))
	require.NoError(t, graph.UpsertEdge(ctx, model.Relationship{SourceID: b.ID, TargetID: c.ID, Kind: "RELATED_TO", Strength: 0.5}))

	require.NoError(t, vector.Upsert(ctx, "chunk-1", "a text", []float32{1, 0, 0}, map[string]string{"concept_id": a.ID}))

	results, err := s.HybridSearch(ctx, "a", 5, 2, false)
	require.NoError(t, err)

	var cScore float64
	for _, g := range results.GraphResults {
		if g.ID == c.ID {
			cScore = g.RelevanceScore
		}
	}
	assert.InDelta(t, 1.0, cScore, 1e-9)
}

func TestHybridSearch_NoSeedsYieldsEmptyGraphResults(t *testing.T) {
	ctx := context.Background()
	s, _, vector := newTestSearcher(t)
	require.NoError(t, vector.Upsert(ctx, "chunk-1", "unrelated text", []float32{1, 0, 0}, nil))

	results, err := s.HybridSearch(ctx, "query", 5, 3, false)
	require.NoError(t, err)
	assert.Empty(t, results.GraphResults)
	assert.Len(t, results.VectorResults, 1)
}
