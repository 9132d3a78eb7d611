package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_OrdersByAscendingDistance(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "a", "text a", []float32{1, 0}, nil))
	require.NoError(t, s.Upsert(ctx, "b", "text b", []float32{0, 1}, nil))
	require.NoError(t, s.Upsert(ctx, "c", "text c", []float32{0.9, 0.1}, nil))

	results, err := s.Query(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "c", results[1].ID)
	assert.Equal(t, "b", results[2].ID)
	assert.Less(t, results[0].Distance, results[1].Distance)
}

func TestQuery_FiltersByWhere(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, "a", "text a", []float32{1, 0}, map[string]string{"document_id": "doc-1"}))
	require.NoError(t, s.Upsert(ctx, "b", "text b", []float32{1, 0}, map[string]string{"document_id": "doc-2"}))

	results, err := s.Query(ctx, []float32{1, 0}, 10, map[string]string{"document_id": "doc-2"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestQuery_RespectsK(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Upsert(ctx, id, id, []float32{1, 0}, nil))
	}
	results, err := s.Query(ctx, []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestDelete_RemovesFromResults(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, "a", "text a", []float32{1, 0}, nil))
	require.NoError(t, s.Delete(ctx, "a"))
	results, err := s.Query(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestJoinSplitList_RoundTrips(t *testing.T) {
	in := []string{"concept-a", "concept-b", "concept-c"}
	assert.Equal(t, in, SplitList(JoinList(in)))
}

func TestSplitList_Empty(t *testing.T) {
	assert.Nil(t, SplitList(""))
}
