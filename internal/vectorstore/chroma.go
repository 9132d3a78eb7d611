package vectorstore

import (
	"context"
	"fmt"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
)

// ChromaStore is the production VectorRepo backend, grounded on the
// persistent-client / get-or-create-collection / cosine-space pattern of
// the system this was distilled from (src/database/vector_db.py), wired to
// github.com/amikos-tech/chroma-go per the domain-stack mapping.
type ChromaStore struct {
	client     chroma.Client
	collection chroma.Collection
}

// NewChromaStore connects to a Chroma instance persisted at dir and opens
// (creating if absent) the named collection configured for cosine distance,
// matching the `hnsw:space: cosine` collection metadata the system this was
// distilled from always sets.
func NewChromaStore(ctx context.Context, dir, collectionName string) (*ChromaStore, error) {
	client, err := chroma.NewPersistentClient(dir)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: connect chroma: %w", err)
	}

	collection, err := client.GetOrCreateCollection(ctx, collectionName,
		chroma.WithCollectionMetadataCreate(
			chroma.NewMetadata(chroma.NewStringAttribute("hnsw:space", "cosine")),
		),
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("vectorstore: get-or-create collection %q: %w", collectionName, err)
	}

	return &ChromaStore{client: client, collection: collection}, nil
}

func (s *ChromaStore) Upsert(ctx context.Context, id, document string, vector []float32, metadata map[string]string) error {
	return s.collection.Upsert(ctx,
		chroma.WithIDGenerator(chroma.NewSequentialIDGenerator()),
		chroma.WithIDs(chroma.DocumentID(id)),
		chroma.WithTexts(document),
		chroma.WithEmbeddings(chroma.NewEmbeddingFromFloat32(vector)),
		chroma.WithMetadatas(toChromaMetadata(metadata)),
	)
}

func (s *ChromaStore) Delete(ctx context.Context, id string) error {
	return s.collection.Delete(ctx, chroma.WithIDsDelete(chroma.DocumentID(id)))
}

func (s *ChromaStore) Query(ctx context.Context, vector []float32, k int, where map[string]string) ([]QueryResult, error) {
	if k <= 0 {
		k = 10
	}
	opts := []chroma.CollectionQueryOption{
		chroma.WithQueryEmbeddings(chroma.NewEmbeddingFromFloat32(vector)),
		chroma.WithNResults(k),
	}
	if len(where) > 0 {
		opts = append(opts, chroma.WithWhereQuery(toChromaFilter(where)))
	}

	res, err := s.collection.Query(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: query: %w", err)
	}

	var out []QueryResult
	ids := res.GetIDGroups()
	docs := res.GetDocumentsGroups()
	metas := res.GetMetadatasGroups()
	dists := res.GetDistancesGroups()
	if len(ids) == 0 {
		return nil, nil
	}
	for i, id := range ids[0] {
		qr := QueryResult{ID: string(id)}
		if i < len(docs[0]) {
			qr.Document = docs[0][i].ContentString()
		}
		if i < len(dists[0]) {
			qr.Distance = float64(dists[0][i])
		}
		if i < len(metas[0]) {
			qr.Metadata = fromChromaMetadata(metas[0][i])
		}
		out = append(out, qr)
	}
	return out, nil
}

func (s *ChromaStore) CheckHealth(ctx context.Context) (bool, string) {
	count, err := s.collection.Count(ctx)
	if err != nil {
		return false, fmt.Sprintf("chroma collection unreachable: %v", err)
	}
	return true, fmt.Sprintf("chroma collection healthy, %d vectors", count)
}

// Repair probes the collection with a count and reports whether it
// responded. It does not recreate the collection handle, reconnect, or
// rebuild the index, so an unreachable collection stays unreachable.
func (s *ChromaStore) Repair(ctx context.Context) RepairResult {
	if _, err := s.collection.Count(ctx); err != nil {
		return RepairResult{OK: false, Diagnostic: fmt.Sprintf("repair failed, collection still unreachable: %v", err)}
	}
	return RepairResult{OK: true, Diagnostic: "collection responded to count probe, no repair needed"}
}

func (s *ChromaStore) Close(ctx context.Context) error {
	return s.client.Close()
}

func toChromaMetadata(md map[string]string) chroma.DocumentMetadata {
	attrs := make([]*chroma.MetaAttribute, 0, len(md))
	for k, v := range md {
		attrs = append(attrs, chroma.NewStringAttribute(k, v))
	}
	return chroma.NewDocumentMetadata(attrs...)
}

func fromChromaMetadata(md chroma.DocumentMetadata) map[string]string {
	if md == nil {
		return nil
	}
	out := make(map[string]string)
	md.Range(func(k string, v chroma.MetaValue) bool {
		out[k] = v.StringValue()
		return true
	})
	return out
}

func toChromaFilter(where map[string]string) chroma.WhereFilter {
	filters := make([]chroma.WhereFilter, 0, len(where))
	for k, v := range where {
		filters = append(filters, chroma.EqString(k, v))
	}
	if len(filters) == 1 {
		return filters[0]
	}
	return chroma.AndFilter(filters...)
}
