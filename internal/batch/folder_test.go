package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphrag/internal/dedupe"
	"graphrag/internal/extract"
	"graphrag/internal/graphstore"
	"graphrag/internal/ingest"
	"graphrag/internal/vectorstore"
)

func newTestIngestor(t *testing.T) *ingest.Ingestor {
	t.Helper()
	graph := graphstore.NewMemoryGraph()
	vector := vectorstore.NewMemoryStore()
	detector := dedupe.New(graph, nil)
	extractor := extract.New(nil, nil)
	return ingest.New(graph, vector, nil, detector, extractor, nil)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDiscover_FiltersByExtensionAndSkipsHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha text")
	writeFile(t, dir, "b.md", "beta text")
	writeFile(t, dir, "c.png", "binary")
	writeFile(t, dir, ".hidden.txt", "hidden")

	files, err := Discover(dir, false, DefaultFileTypes)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.md")}, files)
}

func TestDiscover_NonRecursiveSkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "top.txt", "top level")
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeFile(t, sub, "deep.txt", "nested level")

	files, err := Discover(dir, false, DefaultFileTypes)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "top.txt")}, files)
}

func TestDiscover_RecursiveIncludesSubdirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "top.txt", "top level")
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeFile(t, sub, "deep.txt", "nested level")

	files, err := Discover(dir, true, DefaultFileTypes)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "top.txt"), filepath.Join(sub, "deep.txt")}, files)
}

func TestProcessFolder_IngestsEveryDiscoveredFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.txt", "Machine learning is a subset of artificial intelligence.")
	writeFile(t, dir, "two.txt", "Computer vision trains machines to interpret images.")

	ig := newTestIngestor(t)
	var processedCalls []int
	results, err := ProcessFolder(context.Background(), ig, dir, false, DefaultFileTypes, ingest.Metadata{}, func(processed, total int) {
		processedCalls = append(processedCalls, processed)
	}, nil)

	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, ingest.StatusSuccess, r.Status)
		require.NotNil(t, r.DocumentID)
	}
	assert.Equal(t, []int{1, 2}, processedCalls)
}

func TestProcessFolder_StopsWhenDoneIsClosed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.txt", "Machine learning is a subset of artificial intelligence.")
	writeFile(t, dir, "two.txt", "Computer vision trains machines to interpret images.")
	writeFile(t, dir, "three.txt", "Natural language processing bridges humans and machines.")

	ig := newTestIngestor(t)
	done := make(chan struct{})
	close(done)

	results, err := ProcessFolder(context.Background(), ig, dir, false, DefaultFileTypes, ingest.Metadata{}, nil, done)
	assert.Error(t, err)
	assert.Empty(t, results, "closing done before any file is processed yields no results")
}

func TestProcessFolder_PerFileFailureDoesNotStopTheRest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.txt", "Machine learning is a subset of artificial intelligence.")
	writeFile(t, dir, "empty.txt", "   ")

	ig := newTestIngestor(t)
	results, err := ProcessFolder(context.Background(), ig, dir, false, DefaultFileTypes, ingest.Metadata{}, nil, nil)

	require.NoError(t, err)
	require.Len(t, results, 2)
	byFile := make(map[string]FileResult)
	for _, r := range results {
		byFile[filepath.Base(r.File)] = r
	}
	assert.Equal(t, ingest.StatusSuccess, byFile["good.txt"].Status)
	assert.Equal(t, ingest.StatusFailure, byFile["empty.txt"].Status)
	assert.NotEmpty(t, byFile["empty.txt"].Error)
}
