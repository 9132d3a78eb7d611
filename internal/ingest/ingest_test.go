package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphrag/internal/apperr"
	"graphrag/internal/dedupe"
	"graphrag/internal/extract"
	"graphrag/internal/graphstore"
	"graphrag/internal/model"
	"graphrag/internal/vectorstore"
)

func newTestIngestor(t *testing.T) (*Ingestor, *graphstore.MemoryGraph, *vectorstore.MemoryStore) {
	t.Helper()
	graph := graphstore.NewMemoryGraph()
	vector := vectorstore.NewMemoryStore()
	detector := dedupe.New(graph, nil)
	extractor := extract.New(nil, nil)
	return New(graph, vector, nil, detector, extractor, nil), graph, vector
}

func TestIngest_NewDocumentSucceeds(t *testing.T) {
	ctx := context.Background()
	ig, graph, vector := newTestIngestor(t)

	report, err := ig.Ingest(ctx, "Machine learning is a subset of artificial intelligence.", Metadata{Title: "ML Basics"}, Options{})

	require.NoError(t, err)
	require.Equal(t, StatusSuccess, report.Status)
	require.NotNil(t, report.DocumentID)
	assert.Empty(t, report.Details)
	assert.Greater(t, report.EntitiesCount, 0)

	doc, ok, err := graph.GetDocument(ctx, *report.DocumentID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ML Basics", doc.Title)

	// Not chunking: the whole document is upserted as a single vector record.
	results, err := vector.Query(ctx, []float32{0, 0, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, *report.DocumentID, results[0].ID)
}

func TestIngest_DuplicateByContentHashShortCircuits(t *testing.T) {
	ctx := context.Background()
	ig, _, _ := newTestIngestor(t)

	text := "Duplicate detection text body."
	first, err := ig.Ingest(ctx, text, Metadata{Title: "First"}, Options{})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, first.Status)

	second, err := ig.Ingest(ctx, text, Metadata{Title: "Second"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusDuplicate, second.Status)
	assert.Equal(t, *first.DocumentID, *second.DocumentID)
	assert.Equal(t, "content_hash", second.DuplicateDetectionMethod)
}

func TestIngest_DuplicateByTitleShortCircuits(t *testing.T) {
	ctx := context.Background()
	ig, _, _ := newTestIngestor(t)

	first, err := ig.Ingest(ctx, "Original body text about robotics.", Metadata{Title: "Robotics 101"}, Options{})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, first.Status)

	second, err := ig.Ingest(ctx, "Completely different body text this time.", Metadata{Title: "Robotics 101"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusDuplicate, second.Status)
	assert.Equal(t, "metadata", second.DuplicateDetectionMethod)
}

func TestIngest_PDFWithChunkingProducesChunksAndLinks(t *testing.T) {
	ctx := context.Background()
	ig, graph, vector := newTestIngestor(t)

	text := "Neural networks are a core technique. " +
		"Deep learning extends neural networks with many layers. " +
		"Transformers are a kind of neural network architecture used widely."

	report, err := ig.Ingest(ctx, text, Metadata{Title: "Deep Learning Survey", DocumentType: model.DocumentTypePDF}, Options{UseChunkingForPDF: true, ChunkSize: 60, ChunkOverlap: 10})

	require.NoError(t, err)
	require.Equal(t, StatusSuccess, report.Status)
	require.NotNil(t, report.DocumentID)

	metas, err := graph.ListDocumentMeta(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 1)

	results, err := vector.Query(ctx, []float32{0, 0, 0}, 50, nil)
	require.NoError(t, err)
	assert.Greater(t, len(results), 1, "chunking should produce more than one vector record")
	for _, r := range results {
		assert.Equal(t, *report.DocumentID, r.Metadata["document_id"])
	}
}

func TestIngest_NonPDFNeverChunksEvenWhenRequested(t *testing.T) {
	ctx := context.Background()
	ig, _, vector := newTestIngestor(t)

	text := "This is plain text content that would exceed a tiny chunk size many times over if chunked."
	report, err := ig.Ingest(ctx, text, Metadata{Title: "Plain"}, Options{UseChunkingForPDF: true, ChunkSize: 10, ChunkOverlap: 2})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, report.Status)

	results, err := vector.Query(ctx, []float32{0, 0, 0}, 50, nil)
	require.NoError(t, err)
	require.Len(t, results, 1, "document_type=text must never chunk regardless of options")
}

func TestIngest_ConceptMergeAcrossTwoDocumentsSharesID(t *testing.T) {
	ctx := context.Background()
	ig, graph, _ := newTestIngestor(t)

	r1, err := ig.Ingest(ctx, "Machine learning requires data.", Metadata{Title: "Doc One"}, Options{})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, r1.Status)

	r2, err := ig.Ingest(ctx, "Machine learning is widely used in industry today.", Metadata{Title: "Doc Two"}, Options{})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, r2.Status)

	concept, ok, err := graph.GetConceptByName(ctx, "machine learning")
	require.NoError(t, err)
	require.True(t, ok)

	docs, err := graph.DocumentsMentioningConcept(ctx, concept.Name, 10)
	require.NoError(t, err)
	assert.Len(t, docs, 2, "both documents should mention the same merged concept")
}

func TestIngest_EmptyTextReturnsBadRequest(t *testing.T) {
	ctx := context.Background()
	ig, _, _ := newTestIngestor(t)

	_, err := ig.Ingest(ctx, "   ", Metadata{Title: "Blank"}, Options{})

	require.Error(t, err)
	assert.Equal(t, apperr.BadRequest, apperr.KindOf(err))
}
