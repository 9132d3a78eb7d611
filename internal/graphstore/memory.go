package graphstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"graphrag/internal/apperr"
	"graphrag/internal/model"
)

// MemoryGraph is an in-memory GraphRepo, grounded on the teacher's
// databases.memoryGraph test double but extended to the domain model
// (concept identity merge, monotone edge strength, document/chunk linkage).
// It backs unit tests and serves as a drop-in development backend.
type MemoryGraph struct {
	mu sync.RWMutex

	documents    map[string]model.Document
	documentHash map[string]string // content_hash -> document id

	chunks map[string]model.Chunk

	concepts       map[string]model.Concept
	conceptByName  map[string]string // normalized_name -> id

	// edges[kind][sourceID][targetID] = relationship
	edges map[string]map[string]map[string]model.Relationship

	// mentions[sourceID] = set of concept ids
	mentions map[string]map[string]struct{}
	hasChunk map[string]map[string]struct{} // documentID -> chunk ids
}

func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		documents:     make(map[string]model.Document),
		documentHash:  make(map[string]string),
		chunks:        make(map[string]model.Chunk),
		concepts:      make(map[string]model.Concept),
		conceptByName: make(map[string]string),
		edges:         make(map[string]map[string]map[string]model.Relationship),
		mentions:      make(map[string]map[string]struct{}),
		hasChunk:      make(map[string]map[string]struct{}),
	}
}

func (g *MemoryGraph) Bootstrap(ctx context.Context) error { return nil }

func (g *MemoryGraph) CreateDocument(ctx context.Context, doc model.Document) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.documents[doc.ID] = doc
	if doc.ContentHash != "" {
		g.documentHash[doc.ContentHash] = doc.ID
	}
	return nil
}

func (g *MemoryGraph) GetDocument(ctx context.Context, id string) (model.Document, bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	d, ok := g.documents[id]
	return d, ok, nil
}

func (g *MemoryGraph) FindDocumentByHash(ctx context.Context, hash string) (model.Document, bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.documentHash[hash]
	if !ok {
		return model.Document{}, false, nil
	}
	return g.documents[id], true, nil
}

func (g *MemoryGraph) ListDocumentMeta(ctx context.Context) ([]DocumentMeta, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]DocumentMeta, 0, len(g.documents))
	for _, d := range g.documents {
		out = append(out, DocumentMeta{
			ID:       d.ID,
			FilePath: d.URL,
			Title:    d.Title,
			Author:   d.Author,
			TitleLow: strings.ToLower(strings.TrimSpace(d.Title)),
			Hash:     d.ContentHash,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *MemoryGraph) CreateChunk(ctx context.Context, chunk model.Chunk) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chunks[chunk.ID] = chunk
	return nil
}

func (g *MemoryGraph) LinkHasChunk(ctx context.Context, documentID, chunkID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.documents[documentID]; !ok {
		return apperr.New(apperr.NotFound, "document not found: "+documentID)
	}
	if g.hasChunk[documentID] == nil {
		g.hasChunk[documentID] = make(map[string]struct{})
	}
	g.hasChunk[documentID][chunkID] = struct{}{}
	return nil
}

func (g *MemoryGraph) LinkMentionsConcept(ctx context.Context, sourceID, conceptID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mentions[sourceID] == nil {
		g.mentions[sourceID] = make(map[string]struct{})
	}
	g.mentions[sourceID][conceptID] = struct{}{}
	return nil
}

// UpsertConcept implements the identity-merge rule of spec §4.5.
func (g *MemoryGraph) UpsertConcept(ctx context.Context, c *model.Concept) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c.ID != "" {
		if existing, ok := g.concepts[c.ID]; ok {
			merged := mergeConceptAttrs(existing, *c)
			merged.UpdatedAt = now()
			g.concepts[c.ID] = merged
			*c = merged
			return nil
		}
	}

	if existingID, ok := g.conceptByName[c.NormalizedName]; ok {
		existing := g.concepts[existingID]
		merged := mergeConceptAttrs(existing, *c)
		merged.ID = existingID
		merged.UpdatedAt = now()
		g.concepts[existingID] = merged
		*c = merged
		return nil
	}

	c.Type = sanitizeLabel(c.Type)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now()
	}
	c.UpdatedAt = c.CreatedAt
	g.concepts[c.ID] = *c
	g.conceptByName[c.NormalizedName] = c.ID
	return nil
}

func mergeConceptAttrs(existing, incoming model.Concept) model.Concept {
	merged := existing
	merged.Name = incoming.Name
	if incoming.Type != "" {
		merged.Type = sanitizeLabel(incoming.Type)
	}
	if incoming.Abbreviation != "" {
		merged.Abbreviation = incoming.Abbreviation
	}
	if incoming.Description != "" {
		merged.Description = incoming.Description
	}
	return merged
}

func (g *MemoryGraph) GetConcept(ctx context.Context, id string) (model.Concept, bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.concepts[id]
	return c, ok, nil
}

func (g *MemoryGraph) GetConceptByName(ctx context.Context, normalizedName string) (model.Concept, bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.conceptByName[normalizedName]
	if !ok {
		return model.Concept{}, false, nil
	}
	return g.concepts[id], true, nil
}

func (g *MemoryGraph) ListConcepts(ctx context.Context) ([]model.Concept, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]model.Concept, 0, len(g.concepts))
	for _, c := range g.concepts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (g *MemoryGraph) DocumentsMentioningConcept(ctx context.Context, conceptName string, limit int) ([]model.Document, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	normalized := strings.ToLower(strings.TrimSpace(conceptName))
	conceptID, ok := g.conceptByName[normalized]
	if !ok {
		return nil, nil
	}
	seen := make(map[string]struct{})
	var out []model.Document
	for sourceID, ids := range g.mentions {
		if _, ok := ids[conceptID]; !ok {
			continue
		}
		docID := sourceID
		if chunk, ok := g.chunks[sourceID]; ok {
			docID = chunk.DocumentID
		}
		if _, dup := seen[docID]; dup {
			continue
		}
		if d, ok := g.documents[docID]; ok {
			seen[docID] = struct{}{}
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ChunksMentioningConcept returns the chunks directly linked to conceptName
// via MENTIONS_CONCEPT, excluding mentions whose source is a Document (those
// belong to DocumentsMentioningConcept instead).
func (g *MemoryGraph) ChunksMentioningConcept(ctx context.Context, conceptName string, limit int) ([]model.Chunk, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	normalized := strings.ToLower(strings.TrimSpace(conceptName))
	conceptID, ok := g.conceptByName[normalized]
	if !ok {
		return nil, nil
	}
	var out []model.Chunk
	for sourceID, ids := range g.mentions {
		if _, ok := ids[conceptID]; !ok {
			continue
		}
		if chunk, ok := g.chunks[sourceID]; ok {
			out = append(out, chunk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpsertEdge implements the monotone-strength merge rule of spec §4.5/§3.
func (g *MemoryGraph) UpsertEdge(ctx context.Context, rel model.Relationship) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.edges[rel.Kind] == nil {
		g.edges[rel.Kind] = make(map[string]map[string]model.Relationship)
	}
	if g.edges[rel.Kind][rel.SourceID] == nil {
		g.edges[rel.Kind][rel.SourceID] = make(map[string]model.Relationship)
	}

	existing, ok := g.edges[rel.Kind][rel.SourceID][rel.TargetID]
	if !ok {
		if rel.CreatedAt.IsZero() {
			rel.CreatedAt = now()
		}
		g.edges[rel.Kind][rel.SourceID][rel.TargetID] = rel
		return nil
	}

	merged := existing
	if rel.Strength > merged.Strength {
		merged.Strength = rel.Strength
	}
	merged.Description = rel.Description
	merged.Method = rel.Method
	merged.UpdatedAt = now()
	g.edges[rel.Kind][rel.SourceID][rel.TargetID] = merged
	return nil
}

func (g *MemoryGraph) RelatedTo(ctx context.Context, conceptID string) ([]WeightedEdge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	byTarget, ok := g.edges[model.KindRelatedTo][conceptID]
	if !ok {
		return nil, nil
	}
	out := make([]WeightedEdge, 0, len(byTarget))
	for target, rel := range byTarget {
		strength := rel.Strength
		if strength <= 0 {
			strength = defaultEdgeStrength
		}
		out = append(out, WeightedEdge{TargetID: target, Strength: strength})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
	return out, nil
}

func (g *MemoryGraph) Health(ctx context.Context) (bool, string) {
	return true, "memory graph store is always healthy"
}

func (g *MemoryGraph) Close(ctx context.Context) error { return nil }
